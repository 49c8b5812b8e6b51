package ollamacli

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

// LineParser incrementally splits a byte stream into lines. Partial lines
// are buffered across Feed calls, so a chunk split mid-line is reassembled
// once the rest arrives. Both LF and bare CR terminate a line; the runtime
// CLI redraws progress lines with CR.
type LineParser struct {
	buf bytes.Buffer
}

// Feed consumes the next read and returns all newly completed lines,
// without their terminators.
func (p *LineParser) Feed(data []byte) []string {
	p.buf.Write(data)

	var lines []string
	for {
		raw := p.buf.Bytes()
		i := bytes.IndexAny(raw, "\r\n")
		if i < 0 {
			break
		}
		line := string(raw[:i])
		consume := i + 1
		// Treat CRLF as a single terminator.
		if raw[i] == '\r' && consume < len(raw) && raw[consume] == '\n' {
			consume++
		}
		p.buf.Next(consume)
		lines = append(lines, line)
	}
	return lines
}

// Flush returns any trailing partial line and resets the parser.
func (p *LineParser) Flush() (string, bool) {
	if p.buf.Len() == 0 {
		return "", false
	}
	line := p.buf.String()
	p.buf.Reset()
	return line, true
}

var percentRe = regexp.MustCompile(`(\d+)%`)

// parsePullProgress extracts a progress update from one line of `pull`
// output. Returns nil for lines that carry no progress information.
func parsePullProgress(line string) *models.PullProgress {
	lower := strings.ToLower(line)

	switch {
	case strings.Contains(lower, "pulling manifest"):
		return &models.PullProgress{Status: "pulling manifest", Percent: 0}
	case strings.Contains(lower, "verifying"):
		return &models.PullProgress{Status: "verifying", Percent: 95}
	case strings.Contains(lower, "success"):
		return &models.PullProgress{Status: "success", Percent: 100}
	}

	if m := percentRe.FindStringSubmatch(line); m != nil {
		p := &models.PullProgress{Status: "downloading"}
		p.Percent = float64(atoi(m[1]))
		// Layer lines look like "pulling dde5aa3fc5ff... 42% ...".
		if fields := strings.Fields(line); len(fields) >= 2 && fields[0] == "pulling" {
			p.Digest = strings.TrimSuffix(fields[1], "...")
		}
		return p
	}
	return nil
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// parseListOutput parses the tabular output of `list` into model summaries.
// The first line is a header; columns are NAME, ID, SIZE (two fields), and
// the MODIFIED tail.
func parseListOutput(out string) []models.ModelSummary {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	var summaries []models.ModelSummary
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		summaries = append(summaries, models.ModelSummary{
			Name:     fields[0],
			ID:       fields[1],
			Size:     strings.Join(fields[2:4], " "),
			Modified: strings.Join(fields[4:], " "),
		})
	}
	return summaries
}

// parsePSOutput parses the tabular output of `ps` into running models.
// Columns are NAME, ID, SIZE (two fields), PROCESSOR (two fields, e.g.
// "100% GPU"), and the UNTIL tail.
func parsePSOutput(out string) []models.RunningModel {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	var running []models.RunningModel
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		running = append(running, models.RunningModel{
			Name:      fields[0],
			Size:      strings.Join(fields[2:4], " "),
			Processor: strings.Join(fields[4:6], " "),
			Until:     strings.Join(fields[6:], " "),
		})
	}
	return running
}

// parseShowOutput parses the sectioned output of `show` into ModelInfo.
// Sections start at column zero; their entries are indented key/value rows.
func parseShowOutput(model, out string) *models.ModelInfo {
	info := &models.ModelInfo{Name: model}

	section := ""
	var freeform *string
	for _, line := range strings.Split(out, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		if !strings.HasPrefix(line, " ") {
			section = strings.ToLower(stripped)
			switch section {
			case "template":
				freeform = &info.Template
			case "system":
				freeform = &info.System
			case "license":
				freeform = &info.License
			default:
				freeform = nil
			}
			continue
		}

		if freeform != nil {
			if *freeform != "" {
				*freeform += "\n"
			}
			*freeform += stripped
			continue
		}

		if section != "model" {
			continue
		}
		parts := strings.Fields(stripped)
		if len(parts) < 2 {
			continue
		}
		value := parts[len(parts)-1]
		switch strings.Join(parts[:len(parts)-1], " ") {
		case "architecture":
			info.Architecture = value
		case "parameters":
			info.Parameters = value
		case "quantization":
			info.Quantization = value
		case "format":
			info.Format = value
		}
	}
	return info
}
