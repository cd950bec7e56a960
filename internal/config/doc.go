// Package config holds scopecrawl's runtime configuration, the optional
// per-site YAML file (.scopecrawl), and the XDG directories the tool uses.
package config
