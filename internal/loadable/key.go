package loadable

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the identity of a loadable: nothing for invalid loadables,
// (site, board) for catalogs and (site, board, no) for threads. Fields not
// part of the identity are zeroed, so keys compare with == and work as map keys.
type Key struct {
	mode  Mode
	site  int
	board string
	no    int
}

// ThreadKey returns the key of thread no on board
func ThreadKey(siteID int, board string, no int) Key {
	return Key{mode: ModeThread, site: siteID, board: board, no: no}
}

// CatalogKey returns the key of the catalog of board
func CatalogKey(siteID int, board string) Key {
	return Key{mode: ModeCatalog, site: siteID, board: board}
}

func (k Key) Mode() Mode        { return k.mode }
func (k Key) SiteID() int       { return k.site }
func (k Key) BoardCode() string { return k.board }
func (k Key) No() int           { return k.no }

// IsValid reports whether the key identifies persistable content
func (k Key) IsValid() bool { return k.mode != ModeInvalid }

// String encodes the key as "mode:site:board[:no]". The encoding is stable
// and used as an index key by stores.
func (k Key) String() string {
	switch k.mode {
	case ModeInvalid:
		return "invalid"
	case ModeThread:
		return fmt.Sprintf("%s:%d:%s:%d", k.mode, k.site, k.board, k.no)
	default:
		return fmt.Sprintf("%s:%d:%s", k.mode, k.site, k.board)
	}
}

// ParseKey decodes a key produced by Key.String
func ParseKey(s string) (Key, error) {
	if s == "invalid" {
		return Key{mode: ModeInvalid}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return Key{}, fmt.Errorf("malformed loadable key %q", s)
	}
	site, err := strconv.Atoi(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("malformed site in loadable key %q: %w", s, err)
	}
	switch parts[0] {
	case "catalog", "board":
		if len(parts) != 3 {
			return Key{}, fmt.Errorf("malformed loadable key %q", s)
		}
		mode := ModeCatalog
		if parts[0] == "board" {
			mode = ModeBoard
		}
		return Key{mode: mode, site: site, board: parts[2]}, nil
	case "thread":
		if len(parts) != 4 {
			return Key{}, fmt.Errorf("malformed loadable key %q", s)
		}
		no, err := strconv.Atoi(parts[3])
		if err != nil {
			return Key{}, fmt.Errorf("malformed thread number in loadable key %q: %w", s, err)
		}
		return ThreadKey(site, parts[2], no), nil
	default:
		return Key{}, fmt.Errorf("unknown mode in loadable key %q", s)
	}
}
