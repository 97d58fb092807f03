// Package autostart registers the service to start on login.
package autostart

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Entry describes the command started on login.
type Entry struct {
	// Name identifies the login item (plist label, desktop file and
	// registry value name).
	Name string
	// Exec is the absolute path of the executable.
	Exec string
	Args []string
}

// NewEntry returns an entry for the running executable.
func NewEntry(name string, args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return Entry{Name: name, Exec: exe, Args: args}, nil
}

// CommandLine returns Exec and Args quoted for a shell-style command line.
func (e Entry) CommandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Exec}, e.Args...) {
		if strings.ContainsAny(p, " \t\"") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

const launchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.{{.Name}}.agent</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const desktopEntry = `[Desktop Entry]
Type=Application
Name={{.Name}}
Comment=Mouse and keyboard recorder
Exec={{.CommandLine}}
Terminal=false
X-GNOME-Autostart-enabled=true
`

var (
	plistTmpl   = template.Must(template.New("plist").Parse(launchAgentPlist))
	desktopTmpl = template.Must(template.New("desktop").Parse(desktopEntry))
)
