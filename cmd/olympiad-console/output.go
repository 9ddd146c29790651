package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	nameStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")).Width(8)
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7c3aed")).Bold(true)
	roleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5e9"))
)

func printProfile(w io.Writer, p *domainauth.Profile, kind domainauth.Kind) {
	if p == nil {
		return
	}
	slugs := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		slugs = append(slugs, roleStyle.Render(r.Slug))
	}
	roles := strings.Join(slugs, ", ")
	if roles == "" {
		roles = "-"
	}

	header := nameStyle.Render(p.FullName())
	if p.Correo != "" {
		header += " <" + p.Correo + ">"
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+labelStyle.Render("id")+p.ID)
	fmt.Fprintln(w, "  "+labelStyle.Render("kind")+kindStyle.Render(string(kind)))
	fmt.Fprintln(w, "  "+labelStyle.Render("roles")+roles)
}
