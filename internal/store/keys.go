package store

import "encoding/binary"

// Key prefixes for the four keyspaces multiplexed onto the single badger
// database. Using distinct prefixes rather than separate databases keeps a
// single WriteBatch atomic across all of them, same guarantee the original
// relied on with separate sled trees inside one sled.Db.
const (
	prefixPage    = "page:"
	prefixURL     = "url:"
	prefixWord    = "word:"
	prefixIDTerms = "idterms:"

	// wordKeySeparator sits between a term and its PageId inside a word_index
	// key, matching the original's WORD_KEY_SEPARATOR. Tokenize guarantees no
	// term ever contains it.
	wordKeySeparator = '='
)

func encodeID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func decodeID(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

func pageKey(id uint64) []byte {
	return append([]byte(prefixPage), encodeID(id)...)
}

func urlKey(url string) []byte {
	return append([]byte(prefixURL), []byte(url)...)
}

func idTermsKey(id uint64) []byte {
	return append([]byte(prefixIDTerms), encodeID(id)...)
}

func wordKey(term string, id uint64) []byte {
	key := make([]byte, 0, len(prefixWord)+len(term)+1+8)
	key = append(key, prefixWord...)
	key = append(key, term...)
	key = append(key, wordKeySeparator)
	key = append(key, encodeID(id)...)
	return key
}

func wordPrefix(term string) []byte {
	key := make([]byte, 0, len(prefixWord)+len(term)+1)
	key = append(key, prefixWord...)
	key = append(key, term...)
	key = append(key, wordKeySeparator)
	return key
}

// idFromWordKey extracts the trailing 8-byte PageId from a word_index key.
func idFromWordKey(key []byte) uint64 {
	return decodeID(key[len(key)-8:])
}
