package parser

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/athena2/fleeteval/internal/cache"
	"github.com/athena2/fleeteval/internal/combat"
	"github.com/athena2/fleeteval/pkg/core"
)

// Plan is a loaded and resolved runspec, ready to evaluate.
type Plan struct {
	Settings  combat.Settings
	Trials    int
	DebugDump bool
	Fleets    []*core.Fleet
	Designs   *cache.DesignCache
}

// Parser turns runspec and design files into validated core values.
type Parser struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewParser creates a parser with the tactics validation registered.
func NewParser(logger *slog.Logger) *Parser {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("tactics", func(fl validator.FieldLevel) bool {
		return core.Tactics(fl.Field().String()).Valid()
	})

	return &Parser{
		logger:   logger,
		validate: v,
	}
}

// Load reads the runspec at path and every design file it references.
func (p *Parser) Load(path string) (*Plan, error) {
	spec, err := p.ReadRunspecFile(path)
	if err != nil {
		return nil, err
	}
	return p.BuildPlan(spec, filepath.Dir(path))
}

// LoadReader is Load for a runspec that does not live on disk, such as
// standard input. Design paths are resolved against baseDir.
func (p *Parser) LoadReader(r io.Reader, format, baseDir string) (*Plan, error) {
	spec, err := p.ReadRunspec(r, format)
	if err != nil {
		return nil, err
	}
	return p.BuildPlan(spec, baseDir)
}

// ReadRunspecFile decodes and validates a runspec file.
func (p *Parser) ReadRunspecFile(path string) (*Runspec, error) {
	v := newRunspecViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, loadErr(path, fmt.Errorf("error reading runspec: %w", err))
	}
	return p.decodeRunspec(path, v)
}

// ReadRunspec decodes and validates a runspec of the given format
// (json, yaml or toml).
func (p *Parser) ReadRunspec(r io.Reader, format string) (*Runspec, error) {
	v := newRunspecViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, loadErr("<stdin>", fmt.Errorf("error reading runspec: %w", err))
	}
	return p.decodeRunspec("<stdin>", v)
}

func newRunspecViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("mode", ModeManual)
	v.SetDefault("fightLengthLimit", combat.DefaultFightLengthLimit)
	v.SetDefault("withdrawMultiplier", combat.DefaultWithdrawMultiplier)
	v.SetDefault("timestep", combat.DefaultTimestep)
	v.SetDefault("trials", 1)
	v.SetDefault("debugDump", false)
	return v
}

func (p *Parser) decodeRunspec(file string, v *viper.Viper) (*Runspec, error) {
	var spec Runspec
	if err := v.UnmarshalExact(&spec); err != nil {
		return nil, loadErr(file, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if err := p.validate.Struct(&spec); err != nil {
		return nil, fromValidation(file, err)
	}
	if spec.Mode == ModeAuto {
		return nil, loadErr(file, ErrAutoModeUnsupported, "mode")
	}
	return &spec, nil
}

// BuildPlan loads the design files named by spec and resolves its fleets.
func (p *Parser) BuildPlan(spec *Runspec, baseDir string) (*Plan, error) {
	designs, err := p.LoadDesigns(spec.Load, baseDir)
	if err != nil {
		return nil, err
	}

	fleets, err := p.BuildFleets(spec.Fleets, designs)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Loaded runspec",
		"weapons", len(spec.Load.Weapons),
		"ships", len(spec.Load.Ships),
		"fleets", len(fleets),
		"trials", spec.Trials)

	return NewPlan(spec, designs, fleets), nil
}

// LoadDesigns reads every weapon file and then every ship file named by
// load. Ships may only reference weapons loaded before them.
func (p *Parser) LoadDesigns(load LoadSpec, baseDir string) (*cache.DesignCache, error) {
	designs := cache.NewDesignCache()

	for i, file := range load.Weapons {
		w, err := p.ReadWeapon(resolve(baseDir, file))
		if err != nil {
			return nil, err
		}
		if err := designs.AddWeapon(w); err != nil {
			return nil, loadErr("", err, "load", "weapons", strconv.Itoa(i))
		}
	}
	for i, file := range load.Ships {
		s, err := p.ReadShip(resolve(baseDir, file), designs)
		if err != nil {
			return nil, err
		}
		if err := designs.AddShip(s); err != nil {
			return nil, loadErr("", err, "load", "ships", strconv.Itoa(i))
		}
	}
	if p.logger != nil {
		p.logger.Debug("Loaded designs", "weapons", designs.WeaponNames(), "ships", designs.ShipNames())
	}
	return designs, nil
}

// NewPlan assembles a plan from an already validated runspec.
func NewPlan(spec *Runspec, designs *cache.DesignCache, fleets []*core.Fleet) *Plan {
	return &Plan{
		Settings: combat.Settings{
			FightLengthLimit:   spec.FightLengthLimit,
			WithdrawMultiplier: spec.WithdrawMultiplier,
			Timestep:           spec.Timestep,
		},
		Trials:    spec.Trials,
		DebugDump: spec.DebugDump,
		Fleets:    fleets,
		Designs:   designs,
	}
}

// BuildFleets resolves fleet ship references against designs.
func (p *Parser) BuildFleets(specs []FleetSpec, designs *cache.DesignCache) ([]*core.Fleet, error) {
	fleets := make([]*core.Fleet, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, fs := range specs {
		if seen[fs.Name] {
			return nil, loadErr("", fmt.Errorf("%w '%s'", ErrDuplicateFleet, fs.Name), "fleets", strconv.Itoa(i), "name")
		}
		seen[fs.Name] = true

		fleet := &core.Fleet{Name: fs.Name, Ships: make([]core.FleetEntry, 0, len(fs.Ships))}
		for j, entry := range fs.Ships {
			ship, ok := designs.GetShip(entry.Ship)
			if !ok {
				return nil, loadErr("", fmt.Errorf("%w '%s'", ErrUnknownShip, entry.Ship),
					"fleets", strconv.Itoa(i), "ships", strconv.Itoa(j))
			}
			fleet.Ships = append(fleet.Ships, core.FleetEntry{Ship: ship, Count: entry.Count})
		}

		p.logger.Debug("Built fleet", "name", fleet.Name, "ships", fleet.ShipCount(), "cost", fleet.Cost())
		fleets = append(fleets, fleet)
	}
	return fleets, nil
}

func resolve(baseDir, file string) string {
	if filepath.IsAbs(file) || baseDir == "" {
		return file
	}
	return filepath.Join(baseDir, file)
}

// readDesignFile decodes a single design file into out, rejecting unknown keys.
func readDesignFile(path string, out any) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return loadErr(path, fmt.Errorf("error reading design: %w", err))
	}
	if err := v.UnmarshalExact(out); err != nil {
		return loadErr(path, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return nil
}
