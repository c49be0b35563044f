package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration for YAML duration parsing ("5m", "90s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = v
	return nil
}

// Mode selects the scheduler that fills courts.
type Mode int

const (
	RoundRobin Mode = iota
	CompetitiveVariety
	TeamCompetitiveVariety
	ContinuousWaveFlow
	StrictContinuousRR
	KingOfCourt
)

var modeNames = map[Mode]string{
	RoundRobin:             "round_robin",
	CompetitiveVariety:     "competitive_variety",
	TeamCompetitiveVariety: "team_variety",
	ContinuousWaveFlow:     "continuous_wave",
	StrictContinuousRR:     "strict_round_robin",
	KingOfCourt:            "king_of_court",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode returns the Mode for a config name.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode: %q", name)
}

// InterCourt reports whether the mode rewards players moving between courts.
func (m Mode) InterCourt() bool {
	return m == CompetitiveVariety || m == ContinuousWaveFlow
}

// QueueDriven reports whether the mode consumes a pre-built match queue.
func (m Mode) QueueDriven() bool {
	return m == RoundRobin || m == StrictContinuousRR
}

type Player struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Skill float64 `yaml:"skill"` // external 1.0-5.5 rating, 0 = unseeded
}

type Session struct {
	Name     string `yaml:"name"`
	Mode     string `yaml:"mode"`
	Courts   int    `yaml:"courts"`
	TeamSize int    `yaml:"team_size"`
}

type Ranking struct {
	RoamingPercent   float64 `yaml:"roaming_percent"`
	ProvisionalGames int     `yaml:"provisional_games"`
}

type Repetition struct {
	PartnerGap  int `yaml:"partner_gap"`
	OpponentGap int `yaml:"opponent_gap"`
}

type Adaptive struct {
	Disabled       bool    `yaml:"disabled"`
	WeightOverride float64 `yaml:"weight_override"` // 0 = follow the phase
}

type Search struct {
	CandidateCap int `yaml:"candidate_cap"`
}

type Wait struct {
	DifferenceThreshold Duration `yaml:"difference_threshold"`
}

type Queue struct {
	Length      int `yaml:"length"` // 0 = sized from the roster
	MinWaitlist int `yaml:"min_waitlist"`
}

type Config struct {
	Session     Session    `yaml:"session"`
	Players     []Player   `yaml:"players"`
	LockedTeams [][]string `yaml:"locked_teams"`
	BannedPairs [][]string `yaml:"banned_pairs"`
	Ranking     Ranking    `yaml:"ranking"`
	Repetition  Repetition `yaml:"repetition"`
	Adaptive    Adaptive   `yaml:"adaptive"`
	Search      Search     `yaml:"search"`
	Wait        Wait       `yaml:"wait"`
	Queue       Queue      `yaml:"queue"`
}

const (
	DefaultCourts           = 2
	DefaultTeamSize         = 2
	DefaultRoamingPercent   = 0.5
	DefaultProvisionalGames = 2
	DefaultPartnerGap       = 3
	DefaultOpponentGap      = 2
	DefaultCandidateCap     = 10
	MinCandidateCap         = 8
	MaxCandidateCap         = 12
	DefaultWaitThreshold    = 5 * time.Minute
	DefaultMinWaitlist      = 2
)

// Mode returns the parsed session mode. Call after validation.
func (c *Config) Mode() Mode {
	m, _ := ParseMode(c.Session.Mode)
	return m
}

// PlayersPerMatch is the number of players occupying one court.
func (c *Config) PlayersPerMatch() int {
	return c.Session.TeamSize * 2
}

// LockedPartner returns the teammate locked to id, if any.
func (c *Config) LockedPartner(id string) (string, bool) {
	for _, team := range c.LockedTeams {
		for i, member := range team {
			if member != id {
				continue
			}
			for j, other := range team {
				if j != i {
					return other, true
				}
			}
		}
	}
	return "", false
}

// IsLocked reports whether a and b belong to the same locked team.
func (c *Config) IsLocked(a, b string) bool {
	for _, team := range c.LockedTeams {
		hasA, hasB := false, false
		for _, m := range team {
			hasA = hasA || m == a
			hasB = hasB || m == b
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// IsBanned reports whether a and b may never be teammates.
func (c *Config) IsBanned(a, b string) bool {
	for _, pair := range c.BannedPairs {
		if len(pair) != 2 {
			continue
		}
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

// ApplyDefaults fills zero values with the documented defaults and clamps
// the search cap into its supported range.
func (c *Config) ApplyDefaults() {
	if c.Session.Mode == "" {
		c.Session.Mode = CompetitiveVariety.String()
	}
	if c.Session.Courts == 0 {
		c.Session.Courts = DefaultCourts
	}
	if c.Session.TeamSize == 0 {
		c.Session.TeamSize = DefaultTeamSize
	}
	if c.Ranking.RoamingPercent == 0 {
		c.Ranking.RoamingPercent = DefaultRoamingPercent
	}
	if c.Ranking.ProvisionalGames == 0 {
		c.Ranking.ProvisionalGames = DefaultProvisionalGames
	}
	if c.Repetition.PartnerGap == 0 {
		c.Repetition.PartnerGap = DefaultPartnerGap
	}
	if c.Repetition.OpponentGap == 0 {
		c.Repetition.OpponentGap = DefaultOpponentGap
	}
	switch {
	case c.Search.CandidateCap == 0:
		c.Search.CandidateCap = DefaultCandidateCap
	case c.Search.CandidateCap < MinCandidateCap:
		c.Search.CandidateCap = MinCandidateCap
	case c.Search.CandidateCap > MaxCandidateCap:
		c.Search.CandidateCap = MaxCandidateCap
	}
	if c.Wait.DifferenceThreshold.Duration == 0 {
		c.Wait.DifferenceThreshold.Duration = DefaultWaitThreshold
	}
	if c.Queue.MinWaitlist == 0 {
		c.Queue.MinWaitlist = DefaultMinWaitlist
	}
}

// LoadFromBytes parses YAML bytes into a Config, applies defaults and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// Validate checks structural integrity: mode, court count, team size,
// unique player ids, and locked-team / banned-pair consistency.
func (c *Config) Validate() error {
	mode, err := ParseMode(c.Session.Mode)
	if err != nil {
		return err
	}

	if c.Session.Courts < 1 {
		return fmt.Errorf("at least one court is required")
	}

	if c.Session.TeamSize != 1 && c.Session.TeamSize != 2 {
		return fmt.Errorf("team_size must be 1 (singles) or 2 (doubles), got %d", c.Session.TeamSize)
	}

	if c.Ranking.RoamingPercent < 0 || c.Ranking.RoamingPercent > 1 {
		return fmt.Errorf("roaming_percent must be between 0 and 1, got %v", c.Ranking.RoamingPercent)
	}

	if c.Repetition.PartnerGap < 1 || c.Repetition.OpponentGap < 1 {
		return fmt.Errorf("repetition gaps must be at least 1")
	}

	// Check for duplicate player ids
	seen := make(map[string]bool)
	for _, p := range c.Players {
		if p.ID == "" {
			return fmt.Errorf("player %q has no id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("player id %q appears more than once", p.ID)
		}
		seen[p.ID] = true
		if p.Skill < 0 {
			return fmt.Errorf("player %q: skill must not be negative", p.ID)
		}
	}

	// Validate locked teams
	if len(c.LockedTeams) > 0 && c.Session.TeamSize == 1 {
		return fmt.Errorf("locked_teams require team_size 2")
	}
	lockedIn := make(map[string]int)
	for i, team := range c.LockedTeams {
		if len(team) != c.Session.TeamSize {
			return fmt.Errorf("locked team %d has %d players, want %d", i+1, len(team), c.Session.TeamSize)
		}
		for _, id := range team {
			if !seen[id] {
				return fmt.Errorf("locked team %d: unknown player %q", i+1, id)
			}
			if prev, ok := lockedIn[id]; ok {
				return fmt.Errorf("player %q appears in locked teams %d and %d", id, prev, i+1)
			}
			lockedIn[id] = i + 1
		}
	}
	if mode == TeamCompetitiveVariety && len(c.LockedTeams) < 2 {
		return fmt.Errorf("mode %s needs at least two locked teams", mode)
	}

	// Validate banned pairs
	for i, pair := range c.BannedPairs {
		if len(pair) != 2 {
			return fmt.Errorf("banned pair %d must have exactly two players", i+1)
		}
		if pair[0] == pair[1] {
			return fmt.Errorf("banned pair %d lists %q twice", i+1, pair[0])
		}
		for _, id := range pair {
			if !seen[id] {
				return fmt.Errorf("banned pair %d: unknown player %q", i+1, id)
			}
		}
		if c.IsLocked(pair[0], pair[1]) {
			return fmt.Errorf("players %q and %q are both locked and banned", pair[0], pair[1])
		}
	}

	return nil
}
