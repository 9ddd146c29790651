// Package console embeds the web console templates.
package console

import "embed"

//go:embed all:web/templates
var TemplateFS embed.FS
