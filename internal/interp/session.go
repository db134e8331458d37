package interp

import (
	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/constants"
)

// fileSlot is the file buffer or one file bank
type fileSlot struct {
	path      string
	content   string
	truncated bool
}

func (f fileSlot) empty() bool {
	return f.content == ""
}

// params are per-alias overrides set with /temp and /maxtokens
type params struct {
	temperature *float64
	maxTokens   *int
}

// session is the mutable state of one interpreter
type session struct {
	model          string
	overrides      map[string]params
	system         string
	defaultSystem  string
	stream         bool
	codeOnly       bool
	multiline      bool
	buffer         fileSlot
	banks          [constants.FileBankCount]fileSlot
	lastCompletion string
}

// State is a read-only snapshot of the session
type State struct {
	Model       string
	ModelName   string
	Temperature float64
	MaxTokens   int
	TopK        int

	SystemMessage string
	Stream        bool
	CodeOnly      bool
	Multiline     bool
	Logging       bool

	Buffer          string
	BufferPath      string
	BufferTruncated bool
	Banks           [constants.FileBankCount]string

	LastCompletion string
	Variables      map[string]string
}

// State returns a snapshot of the current session
func (in *Interpreter) State() State {
	entry := in.activeEntry()
	temperature, maxTokens := in.effectiveParams(entry)

	st := State{
		Model:           in.state.model,
		ModelName:       entry.Name,
		Temperature:     temperature,
		MaxTokens:       maxTokens,
		TopK:            entry.TopK,
		SystemMessage:   in.state.system,
		Stream:          in.state.stream,
		CodeOnly:        in.state.codeOnly,
		Multiline:       in.state.multiline,
		Logging:         in.transcript.Active(),
		Buffer:          in.state.buffer.content,
		BufferPath:      in.state.buffer.path,
		BufferTruncated: in.state.buffer.truncated,
		LastCompletion:  in.state.lastCompletion,
		Variables:       make(map[string]string, in.vars.Len()),
	}
	for i, bank := range in.state.banks {
		st.Banks[i] = bank.content
	}
	for _, name := range in.vars.Names() {
		st.Variables[name] = in.vars.Get(name)
	}
	return st
}

// activeEntry returns the config entry of the active alias
func (in *Interpreter) activeEntry() config.ModelEntry {
	entry, _ := in.cfg.Lookup(in.state.model)
	if entry.Alias == "" {
		entry.Alias = in.state.model
	}
	return entry
}

// effectiveParams applies the active alias's overrides to its config entry
func (in *Interpreter) effectiveParams(entry config.ModelEntry) (float64, int) {
	temperature := entry.GetTemperature()
	maxTokens := entry.MaxTokens

	if p, ok := in.state.overrides[entry.Alias]; ok {
		if p.temperature != nil {
			temperature = *p.temperature
		}
		if p.maxTokens != nil {
			maxTokens = *p.maxTokens
		}
	}
	return temperature, maxTokens
}

func (in *Interpreter) setTemperature(alias string, v float64) {
	p := in.state.overrides[alias]
	p.temperature = &v
	in.state.overrides[alias] = p
}

func (in *Interpreter) setMaxTokens(alias string, v int) {
	p := in.state.overrides[alias]
	p.maxTokens = &v
	in.state.overrides[alias] = p
}
