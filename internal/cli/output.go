package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	perr "trcli/internal/platform/errors"
	"trcli/internal/query"
)

// Payload is the JSON envelope every command emits. Keys marshal in
// sorted order, which keeps output diffable
type Payload map[string]any

// newPayload stamps the envelope header fields shared by every command
func newPayload(command string, mode query.Mode) Payload {
	return Payload{
		"command":     command,
		"mode":        string(mode),
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
		"queryId":     uuid.NewString(),
	}
}

// memberField renders the envelope's member block. Public contexts
// expose only the target username, never the caller identity
func memberField(qc *query.Context) Payload {
	if qc.Member != nil {
		return Payload{"memberId": qc.Member.ID(), "username": qc.Member.Username()}
	}
	return Payload{"username": qc.TargetUsername}
}

// recordsOnly reduces an envelope to its record list plus the header
// and the query/filter echo; command-specific extras are dropped
func recordsOnly(p Payload) Payload {
	out := Payload{}
	for _, key := range []string{
		"command", "mode", "generatedAt", "queryId", "member",
		"query", "filters", "count", "records", "limitations",
	} {
		if v, ok := p[key]; ok {
			out[key] = v
		}
	}
	return out
}

// write renders the payload per the output flags: --jsonl emits one
// record per line, --json the indented envelope, otherwise the
// command's text form. --output redirects to a file with a notice on
// stdout
func (a *App) write(p Payload, text func(io.Writer, Payload)) error {
	if a.flags.RecordsOnly {
		p = recordsOnly(p)
	}

	var buf bytes.Buffer
	switch {
	case a.flags.JSONL:
		lines, err := recordLines(p["records"])
		if err != nil {
			return err
		}
		for _, line := range lines {
			buf.Write(line)
			buf.WriteByte('\n')
		}
	case a.flags.JSON || text == nil:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return perr.JSONErrf("encode output failed: %v", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		text(&buf, p)
	}

	if a.flags.Output != "" {
		if err := os.WriteFile(a.flags.Output, buf.Bytes(), 0o644); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "write output file failed")
		}
		_, err := fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", buf.Len(), a.flags.Output)
		return err
	}
	_, err := a.out.Write(buf.Bytes())
	return err
}

// recordLines flattens whatever slice shape records holds into compact
// JSON lines
func recordLines(records any) ([]json.RawMessage, error) {
	if records == nil {
		return nil, nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, perr.JSONErrf("encode records failed: %v", err)
	}
	var lines []json.RawMessage
	if err := json.Unmarshal(data, &lines); err != nil {
		// a single object still emits one line
		return []json.RawMessage{data}, nil
	}
	return lines, nil
}

// listText is the shared text form for record-list commands: a title,
// one compact JSON line per record, then the filter echo and any
// limitations
func listText(title string) func(io.Writer, Payload) {
	return func(w io.Writer, p Payload) {
		fmt.Fprintf(w, "%s (%v)\n", title, p["count"])
		lines, err := recordLines(p["records"])
		if err == nil {
			for _, line := range lines {
				fmt.Fprintf(w, "- %s\n", line)
			}
		}
		writeFilterEcho(w, p)
		writeLimitations(w, p)
	}
}

func writeFilterEcho(w io.Writer, p Payload) {
	summary, ok := p["filters"]
	if !ok {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	var echo struct {
		InputCount  int `json:"inputCount"`
		OutputCount int `json:"outputCount"`
	}
	if json.Unmarshal(data, &echo) == nil {
		fmt.Fprintf(w, "Filter output: %d/%d\n", echo.OutputCount, echo.InputCount)
	}
}

func writeLimitations(w io.Writer, p Payload) {
	limitations, ok := p["limitations"].([]string)
	if !ok || len(limitations) == 0 {
		return
	}
	fmt.Fprint(w, "Limitations:")
	for _, l := range limitations {
		fmt.Fprintf(w, " %s", l)
	}
	fmt.Fprintln(w)
}

func orUnknown(v any) any {
	if v == nil {
		return "unknown"
	}
	if ptr, ok := v.(*float64); ok {
		if ptr == nil {
			return "unknown"
		}
		return *ptr
	}
	return v
}
