// Package configs provides embedded configuration templates for raglite.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they are available in every distribution (source build, binary release).
//
// The templates are used by:
//   - cmd/raglite/cmd/init.go - creates .raglite.yaml in a project
//   - cmd/raglite/cmd/config.go - creates the user config at
//     ~/.config/raglite/config.yaml
//
// Configuration hierarchy (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. User config (~/.config/raglite/config.yaml)
//  3. Project config (.raglite.yaml)
//  4. Environment variables (RAGLITE_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for machine-level configuration,
// written by `raglite config init`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration,
// written by `raglite init` at .raglite.yaml in the project root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
