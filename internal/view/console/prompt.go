package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/talkincode/cafestock/internal/controller"
)

// Prompt asks yes or no questions on a terminal
type Prompt struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool
}

var _ controller.Confirmer = (*Prompt)(nil)

// Confirm reads one answer line. English or Spanish affirmatives approve, anything else declines.
func (p *Prompt) Confirm(message string) bool {
	if p.AssumeYes {
		return true
	}
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%s [y/N]: ", message)
	}
	if p.In == nil {
		return false
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}
