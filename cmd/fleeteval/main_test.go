package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const laserJSON = `{
  "name": "Laser",
  "size": "S",
  "power": -10,
  "minDamage": 8,
  "maxDamage": 12,
  "maxRange": 50,
  "accuracy": 0.8,
  "cooldown": 2,
  "shieldDamageModifier": 1,
  "armourDamageModifier": 0.75,
  "hullDamageModifier": 1,
  "cost": { "alloys": 5 }
}`

const corvetteJSON = `{
  "name": "Corvette",
  "cost": { "alloys": 50, "minerals": 10 },
  "power": 20,
  "speed": 160,
  "evasion": 0.6,
  "hullHealth": 300,
  "armourHealth": 100,
  "shieldHealth": 100,
  "shieldRegen": 1,
  "disengageChances": 1,
  "disengageChanceModifier": 1,
  "tactics": "swarm",
  "weapons": ["Laser", "Laser"]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeRunspec writes design files and a runspec referencing them by
// absolute path, so the runspec also works from standard input.
func writeRunspec(t *testing.T, dir, fleets string) string {
	t.Helper()
	laser := writeFile(t, dir, "weapons/laser.json", laserJSON)
	corvette := writeFile(t, dir, "ships/corvette.json", corvetteJSON)
	return `{
  "mode": "manual",
  "fightLengthLimit": 30,
  "load": { "weapons": ["` + filepath.ToSlash(laser) + `"], "ships": ["` + filepath.ToSlash(corvette) + `"] },
  "fleets": ` + fleets + `
}`
}

const threeFleets = `[
    { "name": "Alpha", "ships": [ { "ship": "Corvette", "count": 3 } ] },
    { "name": "Beta", "ships": [ { "ship": "Corvette", "count": 2 } ] },
    { "name": "Gamma", "ships": [ { "ship": "Corvette", "count": 1 } ] }
  ]`

// lockedBuffer collects log output written from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// isolate points every file the CLI writes into a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Setenv("FLEETEVAL_STORAGE_MEMORY_OUTPUTDIR", filepath.Join(dir, "results"))
	t.Setenv("FLEETEVAL_STORAGE_SQLITE_PATH", filepath.Join(dir, "fleeteval.db"))
	t.Setenv("FLEETEVAL_LOGSDIR", filepath.Join(dir, "logs"))
	return dir
}

func TestRun_Version(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--version"}, nil, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "fleeteval version "+Version+"\n", stdout.String())
}

func TestRun_Help(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"-h"}, nil, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Usage:")
	assert.Contains(t, stdout.String(), "--storage")
}

func TestRun_MissingRunspec(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), nil, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRun_BadFlag(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--nope", "x.json"}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestRun_EvaluatesEveryPair(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "run.json", writeRunspec(t, dir, threeFleets))

	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--config", dir, "--workers", "2", "--seed", "7", "--trials", "2", path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "fleeteval version "+Version+"\n"))
	assert.Contains(t, out, "Loading settings... done!\n")
	assert.Contains(t, out, "Loading components... done!\n")
	assert.Contains(t, out, "Loading fleets... done!\n")
	assert.Contains(t, out, "\nResults\n\n")

	line := regexp.MustCompile(`(?m)^(\w+) vs (\w+): (\w+): -\S+, (\w+): -\S+; (draw|\w+ wins by \S+)$`)
	matches := line.FindAllStringSubmatch(out, -1)
	require.Len(t, matches, 3, out)
	assert.Equal(t, []string{"Alpha", "Beta"}, matches[0][1:3])
	assert.Equal(t, []string{"Alpha", "Gamma"}, matches[1][1:3])
	assert.Equal(t, []string{"Beta", "Gamma"}, matches[2][1:3])

	exports, err := filepath.Glob(filepath.Join(dir, "results", "run_*.json.gz"))
	require.NoError(t, err)
	assert.Len(t, exports, 1)
}

func TestRun_SeedIsReproducible(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "run.json", writeRunspec(t, dir, threeFleets))

	results := func(workers string) string {
		var stdout bytes.Buffer
		var stderr lockedBuffer
		code := run(context.Background(), []string{"--config", dir, "--workers", workers, "--seed", "99", "--trials", "3", path}, nil, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		_, table, ok := strings.Cut(stdout.String(), "\nResults\n\n")
		require.True(t, ok)
		return table
	}
	assert.Equal(t, results("1"), results("3"))
}

func TestRun_ShowCost(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "run.json", writeRunspec(t, dir, threeFleets))

	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--config", dir, "--show-cost", path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	// a corvette costs 130 mineral-equivalents
	assert.Regexp(t, `Alpha vs Beta: Alpha: -\S+/390, Beta: -\S+/260`, stdout.String())
}

func TestRun_Stdin(t *testing.T) {
	dir := isolate(t)
	spec := writeRunspec(t, dir, threeFleets)

	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--config", dir, "-"}, strings.NewReader(spec), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Beta vs Gamma: ")

	exports, err := filepath.Glob(filepath.Join(dir, "results", "stdin_*.json.gz"))
	require.NoError(t, err)
	assert.Len(t, exports, 1)
}

func TestRun_LoadErrorExitsOne(t *testing.T) {
	dir := isolate(t)
	fleets := `[ { "name": "Alpha", "ships": [ { "ship": "Corvette", "count": 1 }, { "ship": "Dreadnought", "count": 1 } ] } ]`
	path := writeFile(t, dir, "run.json", writeRunspec(t, dir, fleets))

	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--config", dir, path}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: fleets > 0 > ships > 1: no such ship 'Dreadnought'")
	assert.Contains(t, stdout.String(), "Loading components... done!\nLoading fleets...\n")
	assert.NotContains(t, stdout.String(), "Results")
}

func TestRun_AutoModeRejected(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "run.json", `{"mode": "auto", "fleets": []}`)

	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(context.Background(), []string{"--config", dir, path}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "auto mode not implemented")
	assert.Contains(t, stdout.String(), "Loading settings...\n")
}

func TestRun_CancelledContext(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "run.json", writeRunspec(t, dir, threeFleets))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	var stderr lockedBuffer
	code := run(ctx, []string{"--config", dir, path}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "interrupted after 0 of 3 matchups")
	assert.Contains(t, stdout.String(), "Results")
}

func TestRunName(t *testing.T) {
	assert.Equal(t, "stdin", runName("-"))
	assert.Equal(t, "duel", runName("/tmp/specs/duel.yaml"))
	assert.Equal(t, "plain", runName("plain"))
}
