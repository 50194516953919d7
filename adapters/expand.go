package adapters

import (
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// expandFuncs are available in config values, so secrets can be kept out of
// config files:
//
//	password: '{{ env "CASSANDRA_PASSWORD" }}'
//	password: '{{ file "/run/secrets/cassandra" }}'
//	password: '{{ exec "pass show cassandra" }}'
var expandFuncs = template.FuncMap{
	"env": os.Getenv,
	"file": func(path string) (string, error) {
		b, err := os.ReadFile(path)
		return strings.TrimSpace(string(b)), err
	},
	"exec": func(line string) (string, error) {
		var cmd *exec.Cmd
		if strings.Contains(line, " | ") {
			cmd = exec.Command("sh", "-c", line)
		} else {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				return "", errors.New("no command provided")
			}
			cmd = exec.Command(fields[0], fields[1:]...)
		}

		out, err := cmd.Output()
		return strings.TrimSpace(string(out)), err
	},
}

// expand renders value as a template with expandFuncs.
func expand(value string) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("config").Funcs(expandFuncs).Parse(value)
	if err != nil {
		return "", errors.Wrap(err, "parse template")
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, nil); err != nil {
		return "", errors.Wrap(err, "execute template")
	}
	return sb.String(), nil
}
