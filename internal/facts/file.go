package facts

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gbrlmrll/mnemo/internal/observability"
)

// FileStore persists facts as two flat JSON documents, read in full at
// startup and rewritten in full on every mutation. The mutex covers
// mutate+save so concurrent extraction commits serialize instead of racing
// on the read-modify-write of the whole file.
type FileStore struct {
	mu       sync.Mutex
	userFile string
	botFile  string

	userFacts map[string][]UserFact
	botFacts  []BotFact

	metrics *observability.Metrics
}

func NewFileStore(userFile, botFile string, metrics *observability.Metrics) *FileStore {
	return &FileStore{
		userFile:  userFile,
		botFile:   botFile,
		userFacts: make(map[string][]UserFact),
		botFacts:  nil,
		metrics:   metrics,
	}
}

// Load reads both collections. A missing or empty file and a malformed file
// both yield an empty collection; only the log line and the load counter
// tell the two causes apart.
func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userFacts = make(map[string][]UserFact)
	if outcome := loadCollection(s.userFile, &s.userFacts); outcome != loadOK {
		s.userFacts = make(map[string][]UserFact)
		log.Printf("user facts %s: starting empty (%s)", s.userFile, outcome)
		s.countLoad("user", string(outcome))
	} else {
		s.countLoad("user", string(loadOK))
	}

	s.botFacts = nil
	if outcome := loadCollection(s.botFile, &s.botFacts); outcome != loadOK {
		s.botFacts = nil
		log.Printf("bot facts %s: starting empty (%s)", s.botFile, outcome)
		s.countLoad("bot", string(outcome))
	} else {
		s.countLoad("bot", string(loadOK))
	}

	return nil
}

type loadOutcome string

const (
	loadOK      loadOutcome = "ok"
	loadMissing loadOutcome = "missing"
	loadCorrupt loadOutcome = "corrupt"
)

func loadCollection(path string, out any) loadOutcome {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return loadMissing
		}
		return loadCorrupt
	}
	if len(data) == 0 {
		return loadMissing
	}
	if err := json.Unmarshal(data, out); err != nil {
		return loadCorrupt
	}
	return loadOK
}

func (s *FileStore) AddUserFact(_ context.Context, userID, displayName, raw string) {
	content := Normalize(raw)

	s.mu.Lock()
	s.userFacts[userID] = append(s.userFacts[userID], UserFact{
		Content:   content,
		StoredBy:  displayName,
		CreatedAt: time.Now().UTC(),
	})
	s.saveLocked(s.userFile, "user", s.userFacts)
	s.mu.Unlock()

	s.countStored("user")
	log.Printf("stored user fact for %s (%s): %q", displayName, userID, content)
}

func (s *FileStore) AddBotFact(_ context.Context, raw string) {
	content := Normalize(raw)

	s.mu.Lock()
	s.botFacts = append(s.botFacts, BotFact{
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	s.saveLocked(s.botFile, "bot", s.botFacts)
	s.mu.Unlock()

	s.countStored("bot")
	log.Printf("stored bot fact: %q", content)
}

// saveLocked rewrites the whole collection. Failures leave memory and disk
// diverged until the next successful save; that divergence is accepted.
func (s *FileStore) saveLocked(path, collection string, v any) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		log.Printf("error saving %s facts to %s: %v", collection, path, err)
		s.countPersistFailure(collection)
	}
}

func (s *FileStore) UserFacts(userID string) []UserFact {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.userFacts[userID]
	if len(arr) == 0 {
		return nil
	}
	out := make([]UserFact, len(arr))
	copy(out, arr)
	return out
}

func (s *FileStore) BotFacts() []BotFact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.botFacts) == 0 {
		return nil
	}
	out := make([]BotFact, len(s.botFacts))
	copy(out, s.botFacts)
	return out
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) countLoad(collection, outcome string) {
	if s.metrics != nil {
		s.metrics.FactLoads.WithLabelValues(collection, outcome).Inc()
	}
}

func (s *FileStore) countStored(scope string) {
	if s.metrics != nil {
		s.metrics.FactsStored.WithLabelValues(scope).Inc()
	}
}

func (s *FileStore) countPersistFailure(collection string) {
	if s.metrics != nil {
		s.metrics.FactPersistFailures.WithLabelValues(collection).Inc()
	}
}
