// Package assets bundles files the service needs at runtime so a default
// deployment does not depend on the working directory.
package assets

import _ "embed"

// BadgeFont is Liberation Serif (SIL Open Font License, see fonts/).
//
//go:embed fonts/LiberationSerif-Regular.ttf
var BadgeFont []byte
