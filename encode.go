package pnl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Price cells, transactions and split events persist as JSONL so they stay
// human-readable, diffable and mergeable in a plain git repository. Prices
// are sharded into one file per year; the ledger and the split table are a
// single file each.

const priceFilesGlob = "[0-9][0-9][0-9][0-9].jsonl"

// encodePriceRecord writes one cell as a single ordered JSON line.
func encodePriceRecord(w io.Writer, r PriceRecord) error {
	var jw jsonObjectWriter
	jw.Append("on", r.On).
		Append("symbol", r.Symbol).
		Append("status", r.Status).
		Optional("close", r.Close).
		Optional("provider", r.Provider).
		Optional("note", r.Note).
		Optional("retrievedAt", r.RetrievedAt).
		Optional("attempts", r.Attempts)
	data, err := jw.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func decodePriceRecord(line []byte) (PriceRecord, error) {
	var jr struct {
		On          Date            `json:"on"`
		Symbol      string          `json:"symbol"`
		Status      PriceStatus     `json:"status"`
		Close       decimal.Decimal `json:"close"`
		Provider    string          `json:"provider"`
		Note        string          `json:"note"`
		RetrievedAt time.Time       `json:"retrievedAt"`
		Attempts    int             `json:"attempts"`
	}
	if err := json.Unmarshal(line, &jr); err != nil {
		return PriceRecord{}, err
	}
	return PriceRecord{
		Symbol:      jr.Symbol,
		On:          jr.On,
		Close:       jr.Close,
		Status:      jr.Status,
		Provider:    jr.Provider,
		Note:        jr.Note,
		RetrievedAt: jr.RetrievedAt,
		Attempts:    jr.Attempts,
	}, nil
}

// LoadPrices reads every per-year price file in dir into a fresh store.
// A missing directory yields an empty store.
func LoadPrices(dir string) (*PriceStore, error) {
	store := NewPriceStore()
	files, err := filepath.Glob(filepath.Join(dir, priceFilesGlob))
	if err != nil {
		return nil, fmt.Errorf("scanning price dir %q: %w", dir, err)
	}
	sort.Strings(files)
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("cannot open %q for reading: %w", name, err)
		}
		scanner := bufio.NewScanner(f)
		i := 0
		for scanner.Scan() {
			i++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			r, err := decodePriceRecord(line)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("parse error %s:%d: %w", name, i, err)
			}
			store.mu.Lock()
			store.records[r.Key()] = r
			store.mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, fmt.Errorf("reading %q: %w", name, err)
		}
		f.Close()
	}
	return store, nil
}

// SavePrices rewrites the per-year price files in dir from the store
// contents, and deletes year files that no longer have any cell.
func SavePrices(dir string, store *PriceStore) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating price dir: %w", err)
	}

	byYear := make(map[int][]PriceRecord)
	for _, r := range store.Records() {
		byYear[r.On.Year()] = append(byYear[r.On.Year()], r)
	}

	written := make(map[string]bool)
	for year, records := range byYear {
		name := filepath.Join(dir, fmt.Sprintf("%04d.jsonl", year))
		var buf bytes.Buffer
		for _, r := range records {
			if err := encodePriceRecord(&buf, r); err != nil {
				return fmt.Errorf("encoding price %s: %w", r.Key(), err)
			}
		}
		if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing %q: %w", name, err)
		}
		written[name] = true
	}

	// Remove year files whose cells have all been repaired away.
	existing, err := filepath.Glob(filepath.Join(dir, priceFilesGlob))
	if err != nil {
		return fmt.Errorf("scanning price dir %q: %w", dir, err)
	}
	for _, name := range existing {
		if !written[name] {
			if err := os.Remove(name); err != nil {
				return fmt.Errorf("removing obsolete %q: %w", name, err)
			}
		}
	}

	store.mu.Lock()
	store.dirty = false
	store.mu.Unlock()
	return nil
}

// DecodeTransactions reads a JSONL transaction export, one object per line.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	i := 0
	for scanner.Scan() {
		i++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("parse error on line %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sortTransactions(txs)
	return txs, nil
}

// ReadTransactions loads the transaction export at path.
func ReadTransactions(path string) ([]Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger %q: %w", path, err)
	}
	defer f.Close()
	txs, err := DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %q: %w", path, err)
	}
	return txs, nil
}

// EncodeTransactions writes transactions as JSONL, ordered chronologically.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sortTransactions(ordered)
	for _, tx := range ordered {
		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("encoding transaction %q: %w", tx.ID, err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return err
		}
	}
	return nil
}

// ReadSplits loads the split table at path, or an empty table when the file
// does not exist.
func ReadSplits(path string) (*SplitTable, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewSplitTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open splits %q: %w", path, err)
	}
	defer f.Close()

	var events []SplitEvent
	scanner := bufio.NewScanner(f)
	i := 0
	for scanner.Scan() {
		i++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e SplitEvent
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("parse error %s:%d: %w", path, i, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewSplitTable(events...), nil
}

// WriteSplits persists the split table as JSONL, one event per line.
func WriteSplits(path string, table *SplitTable) error {
	var buf bytes.Buffer
	for _, e := range table.Events() {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding split %s %s: %w", e.Symbol, e.Effective, err)
		}
		fmt.Fprintf(&buf, "%s\n", data)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
