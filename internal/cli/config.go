package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/source"
)

// Cache backends accepted in the [cache] section.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

// defaultRedisAddr is used when the redis backend is selected without an address.
const defaultRedisAddr = "localhost:6379"

// Config is the optional config file. Command-line flags override it.
//
//	[ingest]
//	format = "carlo"
//	bin_um = 320.0
//
//	[geometry]
//	s2r_cm = 2.0
//	Ep_MeV = 14.7
//
//	[mask.x]
//	start = 10.0
//	end = 90.0
//
//	[cache]
//	backend = "redis"
//	[cache.redis]
//	addr = "localhost:6379"
type Config struct {
	Ingest   IngestConfig   `toml:"ingest"`
	Geometry GeometryConfig `toml:"geometry"`
	Mask     MaskConfig     `toml:"mask"`
	Cache    CacheConfig    `toml:"cache"`
	Output   OutputConfig   `toml:"output"`
}

// IngestConfig holds reader options.
type IngestConfig struct {
	Format        string  `toml:"format"`
	BinUm         float64 `toml:"bin_um" validate:"gte=0,finite"`
	Delimiter     string  `toml:"delimiter"`
	LegacyBinning bool    `toml:"legacy_binning"`
	PathIntegrals bool    `toml:"path_integrals"`
}

// GeometryConfig holds fallback geometry for files that do not carry it.
// Pointers distinguish an absent key from a zero value.
type GeometryConfig struct {
	S2RCm *float64 `toml:"s2r_cm" validate:"omitempty,gt=0,finite"`
	S2DCm *float64 `toml:"s2d_cm" validate:"omitempty,gt=0,finite"`
	EpMeV *float64 `toml:"Ep_MeV" validate:"omitempty,gt=0,finite"`
	BinUm *float64 `toml:"bin_um" validate:"omitempty,gt=0,finite"`
}

// Record converts the configured values to a geometry record.
func (g GeometryConfig) Record() geometry.Record {
	opt := func(p *float64) geometry.Scalar {
		if p == nil {
			return geometry.Unset()
		}
		return geometry.Some(*p)
	}
	return geometry.Record{
		S2RCm: opt(g.S2RCm),
		S2DCm: opt(g.S2DCm),
		EpMeV: opt(g.EpMeV),
		BinUm: opt(g.BinUm),
	}
}

// MaskConfig holds the default mask selections.
type MaskConfig struct {
	X fluxmap.Selection `toml:"x"`
	Y fluxmap.Selection `toml:"y"`
}

// CacheConfig selects the particle table cache backend.
type CacheConfig struct {
	Backend string      `toml:"backend" validate:"oneof=file redis none"`
	Dir     string      `toml:"dir"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr" validate:"required_if=Enabled true"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"gte=0"`
	Prefix   string `toml:"prefix"`

	// Enabled is derived from the backend, not read from the file.
	Enabled bool `toml:"-"`
}

// OutputConfig holds default output paths. Empty paths disable the output.
type OutputConfig struct {
	PRR      string `toml:"prr"`
	Snapshot string `toml:"snapshot"`
	PlotDir  string `toml:"plot_dir"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: backendFile,
			Redis:   RedisConfig{Addr: defaultRedisAddr},
		},
	}
}

// defaultConfigPath returns config.toml inside the XDG config directory.
func defaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// loadConfig reads the config file at path. An empty path means the default
// location, where a missing file yields the defaults. An explicit path
// must exist.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return defaultConfig(), nil
		}
		path = p
	}

	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return defaultConfig(), nil
		}
		var pe toml.ParseError
		if errors.As(err, &pe) {
			return nil, perr.Wrap(perr.ErrCodeInvalidInput, err, "%s: %s", path, pe.Message)
		}
		return nil, perr.FileError(err, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, perr.New(perr.ErrCodeInvalidInput, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		code := perr.GetCode(err)
		if code == "" {
			code = perr.ErrCodeInvalidInput
		}
		return nil, perr.Wrap(code, err, "%s", path)
	}
	return cfg, nil
}

// validate normalizes and checks the loaded values.
func (c *Config) validate() error {
	if c.Cache.Backend == "" {
		c.Cache.Backend = backendFile
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	c.Cache.Redis.Enabled = c.Cache.Backend == backendRedis

	if c.Ingest.Format != "" {
		f, err := source.ParseFormat(c.Ingest.Format)
		if err != nil {
			return err
		}
		c.Ingest.Format = f.String()
	}

	err := geometry.Validator().Struct(c)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return fmt.Errorf("invalid value for %s (%s)", configKey(fe.Namespace()), fe.Tag())
	}
	return err
}

// configKey turns a validator namespace such as "Config.Cache.Backend" into
// the dotted Go field path without the root type.
func configKey(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

// encode writes c as TOML.
func (c *Config) encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				p, err := defaultConfigPath()
				if err != nil {
					return fmt.Errorf("get config dir: %w", err)
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			return cfg.encode(cmd.OutOrStdout())
		},
	})
	return cmd
}
