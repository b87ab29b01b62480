package retention

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// exportOldDiscovery writes discovery results analyzed before the cutoff
// to a JSONL batch file under the export directory. Exported rows stay in
// the store: export is an off-box copy, not a deletion.
func (e *Engine) exportOldDiscovery(cutoff time.Time) (int, error) {
	results, err := e.db.FindDiscoveryOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(e.exportDir, 0755); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(e.exportDir, fmt.Sprintf("discovery_%s.jsonl", uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return 0, fmt.Errorf("write export file %s: %w", path, err)
		}
	}

	e.log.Info().Int("exported", len(results)).Str("file", path).Msg("retention: exported discovery results")
	return len(results), nil
}
