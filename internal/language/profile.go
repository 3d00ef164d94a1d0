package language

import "errors"

// Mode tells whether a language goes through a compiler before it runs.
type Mode string

const (
	ModeCompiled    Mode = "compiled"
	ModeInterpreted Mode = "interpreted"
)

// Strategy is the execution variant attached to a profile when the registry
// is built. Command building and build supervision switch on it instead of
// matching language names.
type Strategy int

const (
	Interpreted Strategy = iota
	CompiledStandard
	CompiledDirectRun
	CompiledTwoPhase
)

func (s Strategy) String() string {
	switch s {
	case Interpreted:
		return "interpreted"
	case CompiledStandard:
		return "compiled"
	case CompiledDirectRun:
		return "direct-run"
	case CompiledTwoPhase:
		return "two-phase"
	default:
		return "unknown"
	}
}

// Spawns reports whether the strategy needs a separate compile process.
func (s Strategy) Spawns() bool {
	return s == CompiledStandard || s == CompiledTwoPhase
}

// FilePlaceholder is replaced verbatim with the absolute source path.
const FilePlaceholder = "$FILE"

// Placeholders understood by post-build run templates.
const (
	OutDirPlaceholder   = "$OUTDIR"
	BaseNamePlaceholder = "$BASENAME"
)

// DefaultProfileName is shown when a language defines no flag profiles.
const DefaultProfileName = "Default"

// FlagProfile is a named set of compiler flags, e.g. Debug or Release.
type FlagProfile struct {
	Name  string
	Flags string
}

// Profile describes how one language is compiled and run.
type Profile struct {
	ID           string
	Mode         Mode
	Template     string
	Compiler     string
	OutputFlag   string
	FlagProfiles []FlagProfile
	DirectRun    string
	PostBuildRun string
	Extensions   []string
	Strategy     Strategy
}

var (
	ErrUnknownLanguage = errors.New("no language profile registered")
	ErrInvalidProfile  = errors.New("invalid language profile")
)

// DeriveStrategy picks the execution variant for a profile's fields.
func DeriveStrategy(p Profile) (Strategy, error) {
	switch p.Mode {
	case ModeInterpreted:
		if p.Template == "" {
			return 0, errors.Join(ErrInvalidProfile, errors.New(p.ID+": interpreted language needs a template"))
		}
		return Interpreted, nil
	case ModeCompiled:
		switch {
		case p.DirectRun != "":
			return CompiledDirectRun, nil
		case p.Compiler == "":
			return 0, errors.Join(ErrInvalidProfile, errors.New(p.ID+": compiled language needs a compiler"))
		case p.PostBuildRun != "":
			return CompiledTwoPhase, nil
		default:
			return CompiledStandard, nil
		}
	default:
		return 0, errors.Join(ErrInvalidProfile, errors.New(p.ID+": unknown mode "+string(p.Mode)))
	}
}

// ActiveFlags returns the flag profile at the 1-based index, falling back to
// a synthetic empty "Default" profile when the language has none.
func (p Profile) ActiveFlags(index int) FlagProfile {
	if len(p.FlagProfiles) == 0 {
		return FlagProfile{Name: DefaultProfileName}
	}
	if index < 1 || index > len(p.FlagProfiles) {
		index = 1
	}
	return p.FlagProfiles[index-1]
}
