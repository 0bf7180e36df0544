// Package store is the badger-backed inverted index: a page store keyed by
// PageId, a url->PageId lookup, a word_index posting list keyed by
// "term=PageId", and an id_terms inverse index used to clean up stale
// postings when a page is re-indexed.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// sequenceBandwidth controls how many IDs GetSequence reserves per round
// trip to the value log; lost IDs on an unclean shutdown are bounded by this.
const sequenceBandwidth = 100

// Store is the index: page content, URL lookup, and term postings, all
// multiplexed onto one badger database via key prefixes (see keys.go).
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (creating if necessary) the badger database rooted at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	seq, err := db.GetSequence([]byte("page_id_sequence"), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: acquire id sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

// Close releases the id sequence and closes the underlying database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("store: release sequence: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// LookupPage returns the SearchResult stored for id.
func (s *Store) LookupPage(id uint64) (SearchResult, error) {
	var result SearchResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrPageNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if jsonErr := json.Unmarshal(val, &result); jsonErr != nil {
				return fmt.Errorf("%w: %v", ErrCorruptIndex, jsonErr)
			}
			return nil
		})
	})
	if err != nil {
		return SearchResult{}, err
	}
	return result, nil
}

// LookupID returns the PageId previously assigned to url.
func (s *Store) LookupID(url string) (uint64, error) {
	var id uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(urlKey(url))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrURLNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return ErrCorruptIndex
			}
			id = decodeID(val)
			return nil
		})
	})
	return id, err
}

// storePage allocates (or reuses) a PageId for url and writes its
// SearchResult, returning the id.
func (s *Store) storePage(url string, result SearchResult) (uint64, error) {
	id, err := s.LookupID(url)
	switch err {
	case nil:
		// re-index: keep the existing id.
	case ErrURLNotFound:
		id, err = s.seq.Next()
		if err != nil {
			return 0, fmt.Errorf("store: allocate page id: %w", err)
		}
	default:
		return 0, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("store: marshal search result: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(urlKey(url), encodeID(id)); err != nil {
			return err
		}
		return txn.Set(pageKey(id), encoded)
	})
	if err != nil {
		return 0, fmt.Errorf("store: write page %s: %w", url, err)
	}
	return id, nil
}

// clearPostings removes every word_index entry previously recorded for id,
// using the id_terms inverse index to find them without a full table scan.
func (s *Store) clearPostings(id uint64) error {
	var terms []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idTermsKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &terms)
		})
	})
	if err != nil {
		return fmt.Errorf("store: read prior terms for page %d: %w", id, err)
	}
	if len(terms) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, term := range terms {
		if err := wb.Delete(wordKey(term, id)); err != nil {
			return fmt.Errorf("store: clear posting %s/%d: %w", term, id, err)
		}
	}
	return wb.Flush()
}

// storeWords writes one word_index posting per term for id, and records the
// term set in id_terms so a future re-index can clear it cheaply.
func (s *Store) storeWords(id uint64, counts []termCount) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	terms := make([]string, 0, len(counts))
	for _, c := range counts {
		terms = append(terms, c.term)
		countBuf := encodeID(uint64(c.count))
		if err := wb.Set(wordKey(c.term, id), countBuf); err != nil {
			return fmt.Errorf("store: write posting %s/%d: %w", c.term, id, err)
		}
	}

	encodedTerms, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("store: marshal term list for page %d: %w", id, err)
	}
	if err := wb.Set(idTermsKey(id), encodedTerms); err != nil {
		return fmt.Errorf("store: write id_terms for page %d: %w", id, err)
	}
	return wb.Flush()
}

type termCount struct {
	term  string
	count int
}

// Tokenizer is the narrow interface AddPage needs from internal/textpipeline,
// kept as an interface here so store has no import-cycle dependency on it.
type Tokenizer interface {
	Tokenize(text string) []string
	Filter(tokens []string) []string
}

// AddPage indexes a page's title and content, skipping the write if the page
// was already indexed within minUpdateInterval. It reports whether the page
// was (re)indexed.
func (s *Store) AddPage(tokenizer Tokenizer, url, title, content string, minUpdateInterval time.Duration, now time.Time) (bool, error) {
	existingID, lookupErr := s.LookupID(url)
	if lookupErr == nil {
		existing, err := s.LookupPage(existingID)
		if err != nil {
			return false, err
		}
		if now.Sub(existing.LastIndex) < minUpdateInterval {
			slog.Debug("skipping recently indexed page", slog.String("url", url))
			return false, nil
		}
		if err := s.clearPostings(existingID); err != nil {
			return false, err
		}
	} else if lookupErr != ErrURLNotFound {
		return false, lookupErr
	}

	tokens := tokenizer.Filter(tokenizer.Tokenize(title + " " + content))
	counted := countTerms(tokens)

	result := newSearchResult(url, title, content, now)
	id, err := s.storePage(url, result)
	if err != nil {
		return false, err
	}
	if err := s.storeWords(id, counted); err != nil {
		return false, err
	}
	return true, nil
}

func countTerms(tokens []string) []termCount {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	result := make([]termCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, termCount{term: term, count: count})
	}
	return result
}

// LookupTermPostings returns PageId -> occurrence count for every page
// indexed under term, by scanning the word_index prefix for term.
func (s *Store) LookupTermPostings(term string) (map[uint64]uint64, error) {
	postings := make(map[uint64]uint64)
	prefix := wordPrefix(term)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := idFromWordKey(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return ErrCorruptIndex
				}
				postings[id] = decodeID(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan postings for %q: %w", term, err)
	}
	return postings, nil
}
