package format

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bytedance/sonic"
)

// WriteEDN writes an EDN rendering of v: maps, vectors, strings, numbers,
// booleans and nil. Values go through their JSON encoding first so field names
// follow the json tags; map keys become keywords and RFC 3339 timestamps under
// *At / *Date keys become #inst literals.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return err
	}
	var x any
	if err := sonic.ConfigStd.Unmarshal(b, &x); err != nil {
		return err
	}

	enc := ednEncoder{pretty: pretty, indent: 2}
	enc.value(x, 0, "")
	enc.buf.WriteByte('\n')
	_, err = w.Write(enc.buf.Bytes())
	return err
}

type ednEncoder struct {
	buf    bytes.Buffer
	pretty bool
	indent int
}

// value writes v; key is the map key v sits under, or "" inside vectors.
func (e *ednEncoder) value(v any, level int, key string) {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("nil")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case string:
		if isTimeKey(key) {
			if _, err := time.Parse(time.RFC3339Nano, t); err == nil {
				e.buf.WriteString("#inst ")
			}
		}
		e.buf.WriteString(strconv.Quote(t))
	case float64:
		if t == float64(int64(t)) {
			e.buf.WriteString(strconv.FormatInt(int64(t), 10))
			return
		}
		e.buf.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case []any:
		e.coll('[', ']', len(t), level, func(i int) {
			e.value(t[i], level+1, "")
		})
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.coll('{', '}', len(keys), level, func(i int) {
			e.buf.WriteByte(':')
			e.buf.WriteString(ednKeyword(keys[i]))
			e.buf.WriteByte(' ')
			e.value(t[keys[i]], level+1, keys[i])
		})
	default:
		e.buf.WriteString(strconv.Quote(fmt.Sprintf("%v", v)))
	}
}

// coll writes n elements between open and close, one per line when pretty.
func (e *ednEncoder) coll(open, close byte, n, level int, elem func(i int)) {
	e.buf.WriteByte(open)
	if n == 0 {
		e.buf.WriteByte(close)
		return
	}
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.newline(level + 1)
		case i > 0:
			e.buf.WriteByte(' ')
		}
		elem(i)
	}
	if e.pretty {
		e.newline(level)
	}
	e.buf.WriteByte(close)
}

func (e *ednEncoder) newline(level int) {
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(" ", level*e.indent))
}

func isTimeKey(k string) bool {
	return strings.HasSuffix(k, "At") || strings.HasSuffix(k, "Date")
}

// ednKeyword maps a JSON key to a keyword name: camelCase and snake_case become
// kebab-case and a leading underscore is kept (":_hints").
func ednKeyword(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == ' ' || r == '_' && i > 0:
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
