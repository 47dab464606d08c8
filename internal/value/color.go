package value

import "strings"

// ANSI colors understood by both terminals and gocui views.
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorWhite   = "\033[37m"
)

const (
	colorReset  = ColorReset
	colorKey    = ColorCyan
	colorString = ColorGreen
	colorNumber = ColorYellow
	colorBool   = ColorMagenta
	colorNull   = ColorRed
)

// Colorize renders v like Indent with ANSI colors per token kind.
func Colorize(v any) string {
	var b strings.Builder
	colorize(&b, v, 0)
	return b.String()
}

func colorize(b *strings.Builder, v any, depth int) {
	prefix := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case nil:
		b.WriteString(colorNull + "null" + colorReset)
	case bool:
		b.WriteString(colorBool)
		write(b, t, "", 0)
		b.WriteString(colorReset)
	case float64, int, int64:
		b.WriteString(colorNumber)
		write(b, t, "", 0)
		b.WriteString(colorReset)
	case string:
		b.WriteString(colorString)
		writeString(b, t)
		b.WriteString(colorReset)
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, e := range t {
			b.WriteString(prefix + "  ")
			colorize(b, e, depth+1)
			if i < len(t)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(prefix + "]")
	case *Object:
		if t.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, k := range t.keys {
			b.WriteString(prefix + "  " + colorKey)
			writeString(b, k)
			b.WriteString(colorReset + ": ")
			colorize(b, t.fields[k], depth+1)
			if i < len(t.keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(prefix + "}")
	default:
		write(b, t, "", 0)
	}
}
