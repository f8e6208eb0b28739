package webassets

import "embed"

// FS contains the console pages and script.
//
//go:embed login.html dashboard.html console.js
var FS embed.FS
