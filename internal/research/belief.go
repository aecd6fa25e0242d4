package research

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BeliefEntry names one Research Agent instance and the belief it should
// argue from, the unit main.py's belief_list.json config loads into a roster
// of ResearchAgent instances.
type BeliefEntry struct {
	Name   string `json:"name"`
	Belief string `json:"belief"`
}

// LoadBeliefList reads a belief-list JSON file: either an array of
// {"name","belief"} objects, or (the original's legacy format) a plain
// array of belief strings, each assigned a generated "agent_N" name.
func LoadBeliefList(path string) ([]BeliefEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read belief list %s: %w", path, err)
	}

	var entries []BeliefEntry
	if err := json.Unmarshal(data, &entries); err == nil && allNamed(data) {
		return entries, nil
	}

	var legacy []string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse belief list %s: %w", path, err)
	}
	entries = make([]BeliefEntry, len(legacy))
	for i, belief := range legacy {
		entries[i] = BeliefEntry{Name: fmt.Sprintf("agent_%d", i), Belief: belief}
	}
	return entries, nil
}

// allNamed distinguishes the object-array format from the legacy
// string-array format: a successful unmarshal into []BeliefEntry also
// succeeds (silently, with empty fields) against a []string input, so this
// re-checks the raw JSON actually contains objects.
func allNamed(data []byte) bool {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	for _, r := range raw {
		trimmed := trimLeadingSpace(r)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return false
		}
	}
	return true
}

func trimLeadingSpace(b json.RawMessage) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

// BeliefStore tracks each Research Agent's current belief across runs,
// keyed by agent name. The original seeds a belief once from
// belief_list.json and never updates it from within the ReAct loop itself;
// this store exists so a belief formed by a later feedback mechanism (e.g.
// a contest-performance review rewriting an agent's stance) is picked up by
// that agent's next run without threading it back through static config.
type BeliefStore struct {
	dir string
}

// NewBeliefStore returns a store rooted at dir, creating it if necessary.
func NewBeliefStore(dir string) (*BeliefStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create belief store %s: %w", dir, err)
	}
	return &BeliefStore{dir: dir}, nil
}

func (s *BeliefStore) path(agentName string) string {
	safe := strings.ReplaceAll(agentName, string(filepath.Separator), "_")
	return filepath.Join(s.dir, safe+".json")
}

type storedBelief struct {
	Belief string `json:"belief"`
}

// Load returns the agent's currently stored belief. If none has been saved
// yet, fallback is persisted as the agent's initial belief and returned.
func (s *BeliefStore) Load(agentName, fallback string) (string, error) {
	data, err := os.ReadFile(s.path(agentName))
	if err != nil {
		if os.IsNotExist(err) {
			if saveErr := s.Save(agentName, fallback); saveErr != nil {
				return "", saveErr
			}
			return fallback, nil
		}
		return "", fmt.Errorf("read belief for %s: %w", agentName, err)
	}
	var b storedBelief
	if err := json.Unmarshal(data, &b); err != nil {
		return "", fmt.Errorf("unmarshal belief for %s: %w", agentName, err)
	}
	return b.Belief, nil
}

// Save persists agentName's current belief, overwriting any prior value.
func (s *BeliefStore) Save(agentName, belief string) error {
	data, err := json.Marshal(storedBelief{Belief: belief})
	if err != nil {
		return fmt.Errorf("marshal belief for %s: %w", agentName, err)
	}
	if err := os.WriteFile(s.path(agentName), data, 0o600); err != nil {
		return fmt.Errorf("write belief for %s: %w", agentName, err)
	}
	return nil
}
