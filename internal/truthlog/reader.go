package truthlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"signal-truth/internal/domain"
)

// maxLineSize bounds one truth log line.
const maxLineSize = 1 << 20

// ReadPartition returns the last limit records of one partition, oldest
// first. limit <= 0 returns everything. A missing partition is not an
// error: it simply has no records yet.
func ReadPartition(dir string, unit domain.UnitSystem, limit int) ([]Record, error) {
	path := PartitionPath(dir, unit)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open truth log %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		// A torn or corrupt line is skipped; the log stays readable.
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read truth log %s: %w", path, err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// CollectSignalIDs returns every signal id recorded in any partition.
// Used at startup to seed the registry's processed set so a restart
// never re-admits an already resolved signal.
func CollectSignalIDs(dir string) ([]string, error) {
	var ids []string
	for _, unit := range []domain.UnitSystem{domain.UnitSystemForex, domain.UnitSystemCrypto} {
		records, err := ReadPartition(dir, unit, 0)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.SignalID != "" {
				ids = append(ids, rec.SignalID)
			}
		}
	}
	return ids, nil
}
