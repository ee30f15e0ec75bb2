// Package geometry holds the experimental geometry attached to a radiograph:
// source-to-object distance, source-to-detector distance, proton energy, and
// detector bin size.
//
// Each value is a [Scalar] that may be unset. Readers set what their file
// format carries; the rest is filled later from a config file or an
// interactive prompt using [Record.Fill].
package geometry

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

// Field names, in canonical order. They match the PRR header keys.
const (
	FieldS2R = "s2r_cm"
	FieldS2D = "s2d_cm"
	FieldEp  = "Ep_MeV"
	FieldBin = "bin_um"
)

// Fields lists every field name in canonical order.
var Fields = []string{FieldS2R, FieldS2D, FieldEp, FieldBin}

// Record is the set of geometry scalars for one radiograph.
type Record struct {
	S2RCm Scalar `json:"s2r_cm" toml:"s2r_cm" validate:"omitempty,gt=0,finite"`
	S2DCm Scalar `json:"s2d_cm" toml:"s2d_cm" validate:"omitempty,gt=0,finite"`
	EpMeV Scalar `json:"Ep_MeV" toml:"Ep_MeV" validate:"omitempty,gt=0,finite"`
	BinUm Scalar `json:"bin_um" toml:"bin_um" validate:"omitempty,gt=0,finite"`
}

// Get returns the scalar stored under name.
func (r Record) Get(name string) (Scalar, bool) {
	switch name {
	case FieldS2R:
		return r.S2RCm, true
	case FieldS2D:
		return r.S2DCm, true
	case FieldEp:
		return r.EpMeV, true
	case FieldBin:
		return r.BinUm, true
	}
	return Scalar{}, false
}

// With returns a copy of r with name set to s.
func (r Record) With(name string, s Scalar) (Record, error) {
	switch name {
	case FieldS2R:
		r.S2RCm = s
	case FieldS2D:
		r.S2DCm = s
	case FieldEp:
		r.EpMeV = s
	case FieldBin:
		r.BinUm = s
	default:
		return r, perr.New(perr.ErrCodeInvalidInput,
			"unknown geometry field %q (want one of %s)", name, strings.Join(Fields, ", "))
	}
	return r, nil
}

// Fill returns a copy of r where every unset field is taken from other.
// Set fields are never overwritten.
func (r Record) Fill(other Record) Record {
	for _, name := range Fields {
		cur, _ := r.Get(name)
		if cur.IsSet() {
			continue
		}
		if v, _ := other.Get(name); v.IsSet() {
			r, _ = r.With(name, v)
		}
	}
	return r
}

// Missing returns the names of unset fields in canonical order.
func (r Record) Missing() []string {
	var out []string
	for _, name := range Fields {
		if s, _ := r.Get(name); !s.IsSet() {
			out = append(out, name)
		}
	}
	return out
}

// Complete reports whether every field is set.
func (r Record) Complete() bool { return len(r.Missing()) == 0 }

// Validate checks that every set field is positive and finite.
// Unset fields are allowed.
func (r Record) Validate() error {
	err := validate().Struct(r)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return perr.Wrap(perr.ErrCodeInternal, err, "validate geometry")
	}
	names := make([]string, 0, len(ve))
	for _, fe := range ve {
		names = append(names, fe.Field())
	}
	return perr.Wrap(perr.ErrCodeInvalidInput, err,
		"geometry %s must be positive and finite", strings.Join(names, ", "))
}

// String renders the record as "s2r_cm=... s2d_cm=... Ep_MeV=... bin_um=...".
func (r Record) String() string {
	parts := make([]string, 0, len(Fields))
	for _, name := range Fields {
		s, _ := r.Get(name)
		parts = append(parts, fmt.Sprintf("%s=%s", name, s))
	}
	return strings.Join(parts, " ")
}

var (
	vOnce sync.Once
	vInst *validator.Validate
)

// validate returns the shared validator. Scalars validate as their float
// value, or as absent when unset so omitempty skips them.
func validate() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			s, ok := field.Interface().(Scalar)
			if !ok || !s.IsSet() {
				return nil
			}
			return s.value
		}, Scalar{})
		_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			if f.Kind() != reflect.Float64 {
				return true
			}
			x := f.Float()
			return !math.IsInf(x, 0) && !math.IsNaN(x)
		})
		vInst = v
	})
	return vInst
}

// Validator returns the shared validator with the "finite" tag and Scalar
// support registered, for use by other packages' config structs.
func Validator() *validator.Validate { return validate() }
