// Package output renders CLI messages, tables and gateway responses.
package output

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/internal/writer"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/fatih/color"
)

var (
	// Colors and styles
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)

	// Output writers (can be overridden for testing)
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	// Disable colors if not TTY or NO_COLOR is set
	noColor = os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout)
)

// maxBodyPreview bounds the body printed by Response.
const maxBodyPreview = 4096

func init() {
	if noColor {
		color.NoColor = true
	}
}

// Success prints a success message with a checkmark
// Example: ✓ Replayed 3 events
func Success(format string, a ...any) {
	fmt.Fprintf(Stdout, green.Sprint("✓")+" "+format+"\n", a...)
}

// Info prints an informational message with an arrow
// Example: → Invoking function my-api
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, cyan.Sprint("→")+" "+format+"\n", a...)
}

// Warning prints a warning message with a warning symbol
func Warning(format string, a ...any) {
	fmt.Fprintf(Stdout, yellow.Sprint("⚠")+" "+format+"\n", a...)
}

// Error prints an error message with an X symbol to Stderr
// Example: ✗ event.json: unrecognized gateway event shape
func Error(format string, a ...any) {
	fmt.Fprintf(Stderr, red.Sprint("✗")+" "+format+"\n", a...)
}

// Fatal prints an error message and exits with code 1
func Fatal(format string, a ...any) {
	Error(format, a...)
	os.Exit(1)
}

// Header prints a section header with a separator line
func Header(text string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, bold.Sprint(text))
	fmt.Fprintln(Stdout, gray.Sprint(strings.Repeat("━", 50)))
}

// KeyValue prints a key-value pair with indentation
// Example:   Status: 200 OK
func KeyValue(key, value string) {
	fmt.Fprintf(Stdout, "  %s: %s\n", gray.Sprint(key), value)
}

// Blank prints a blank line
func Blank() {
	fmt.Fprintln(Stdout)
}

// Println prints a plain line without any formatting
func Println(a ...any) {
	fmt.Fprintln(Stdout, a...)
}

// Table prints a simple table with headers
// Example:
// Header          Value
// ──────          ─────
// Content-Type    application/json
func Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Pad before colouring so escape codes do not count towards the width.
	for i, h := range headers {
		fmt.Fprintf(Stdout, "%s  ", bold.Sprint(pad(h, widths[i])))
	}
	fmt.Fprintln(Stdout)

	for i := range headers {
		fmt.Fprintf(Stdout, "%s  ", gray.Sprint(strings.Repeat("─", widths[i])))
	}
	fmt.Fprintln(Stdout)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(Stdout, "%s  ", pad(cell, widths[i]))
			}
		}
		fmt.Fprintln(Stdout)
	}
}

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// StatusBadge colors an HTTP status by class.
func StatusBadge(code int) string {
	text := api.StatusDescription(code)
	switch {
	case code >= constants.HTTPStatusServerError:
		return red.Sprint("● " + text)
	case code >= constants.HTTPStatusClientError:
		return yellow.Sprint("● " + text)
	case code >= 300:
		return cyan.Sprint("● " + text)
	default:
		return green.Sprint("● " + text)
	}
}

// Response prints a gateway response: status, headers, cookies and a body preview.
// Base64 bodies are decoded; binary content is summarized by size.
func Response(resp *api.ResponseEvent, elapsed time.Duration) {
	Header("Response")
	KeyValue("Status", StatusBadge(resp.StatusCode))
	KeyValue("Duration", Duration(elapsed))
	if resp.IsBase64Encoded {
		KeyValue("Encoding", "base64")
	}

	rows := headerRows(resp)
	if len(rows) > 0 {
		Blank()
		Table([]string{"Header", "Value"}, rows)
	}

	for _, c := range resp.Cookies {
		KeyValue("Set-Cookie", c)
	}

	Blank()
	fmt.Fprintln(Stdout, BodyPreview(resp))
}

func headerRows(resp *api.ResponseEvent) [][]string {
	names := writer.SortedHeaderNames(resp)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		if values, ok := resp.MultiValueHeaders[name]; ok {
			for _, v := range values {
				rows = append(rows, []string{name, v})
			}
			continue
		}
		rows = append(rows, []string{name, resp.Headers[name]})
	}
	return rows
}

// BodyPreview returns the printable form of a response body.
func BodyPreview(resp *api.ResponseEvent) string {
	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			return gray.Sprint("<invalid base64 body>")
		}
		body = decoded
	}

	if len(body) == 0 {
		return gray.Sprint("<empty body>")
	}
	if !utf8.Valid(body) {
		return gray.Sprint("<binary body, " + Bytes(int64(len(body))) + ">")
	}
	if len(body) > maxBodyPreview {
		return string(body[:maxBodyPreview]) + gray.Sprint("… ("+strconv.Itoa(len(body)-maxBodyPreview)+" more bytes)")
	}
	return string(body)
}

// Duration formats a duration in a human-readable way
func Duration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// Bytes formats bytes in a human-readable way
func Bytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fileInfo, _ := f.Stat()
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}
