package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/pipeline"
)

// fieldHelp describes each geometry field in the prompt.
var fieldHelp = map[string]string{
	geometry.FieldS2R: "Source-to-object distance in cm",
	geometry.FieldS2D: "Source-to-detector distance in cm",
	geometry.FieldEp:  "Proton energy in MeV",
	geometry.FieldBin: "Detector bin size in um",
}

// formPrompter asks for missing values with terminal forms.
type formPrompter struct {
	accessible bool
}

// newPrompter returns a pipeline.Prompter backed by huh forms. Accessible
// mode replaces the TUI with plain line prompts.
func newPrompter(accessible bool) *formPrompter {
	return &formPrompter{accessible: accessible}
}

// Geometry prompts for each missing field. An empty answer or "None"
// leaves the field unset.
func (p *formPrompter) Geometry(ctx context.Context, missing []string) (geometry.Record, error) {
	values := make([]string, len(missing))
	fields := make([]huh.Field, 0, len(missing))
	for i, name := range missing {
		fields = append(fields, huh.NewInput().
			Title(name).
			Description(fieldHelp[name]).
			Placeholder("None").
			Value(&values[i]).
			Validate(validateScalar))
	}
	if err := p.run(ctx, huh.NewGroup(fields...).Title("Missing geometry")); err != nil {
		return geometry.Record{}, err
	}

	var rec geometry.Record
	for i, name := range missing {
		var s geometry.Scalar
		if err := s.UnmarshalText([]byte(values[i])); err != nil {
			return geometry.Record{}, err
		}
		var err error
		if rec, err = rec.With(name, s); err != nil {
			return geometry.Record{}, err
		}
	}
	return rec, nil
}

// Selection shows the current mask selections for editing.
func (p *formPrompter) Selection(ctx context.Context, x, y fluxmap.Selection) (fluxmap.Selection, fluxmap.Selection, error) {
	xs, ys := x.String(), y.String()
	group := huh.NewGroup(
		huh.NewInput().
			Title("x-mask").
			Description("Masked range along the first axis, in percent").
			Value(&xs).
			Validate(validateSelection),
		huh.NewInput().
			Title("y-mask").
			Description("Masked range along the second axis, in percent").
			Value(&ys).
			Validate(validateSelection),
	).Title("Mask selection")
	if err := p.run(ctx, group); err != nil {
		return x, y, err
	}

	nx, err := fluxmap.ParseSelection(xs)
	if err != nil {
		return x, y, err
	}
	ny, err := fluxmap.ParseSelection(ys)
	if err != nil {
		return x, y, err
	}
	return nx, ny, nil
}

func (p *formPrompter) run(ctx context.Context, group *huh.Group) error {
	err := huh.NewForm(group).WithAccessible(p.accessible).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return context.Canceled
	}
	return err
}

func validateScalar(text string) error {
	var s geometry.Scalar
	if err := s.UnmarshalText([]byte(text)); err != nil {
		return errors.New("enter a number or leave empty")
	}
	if !s.Valid() {
		return errors.New("must be positive and finite")
	}
	return nil
}

func validateSelection(text string) error {
	s, err := fluxmap.ParseSelection(text)
	if err != nil {
		return err
	}
	if !s.Valid() {
		return fmt.Errorf("%s is outside 0 %% - 100 %%", s)
	}
	return nil
}

var _ pipeline.Prompter = (*formPrompter)(nil)
