// Package apiurl builds API endpoint URLs for clients that may be
// served either same-origin (relative URLs) or from a packaged desktop
// shell that needs an absolute public base.
package apiurl

import "strings"

// Builder resolves endpoint paths against an optional public base URL.
// With an empty base every endpoint resolves to a root-relative path.
type Builder struct {
	base string
}

func NewBuilder(publicBaseURL string) Builder {
	return Builder{base: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")}
}

// URL returns the endpoint as "/endpoint" when no base is configured,
// or "<base>/endpoint" when one is.
func (b Builder) URL(endpoint string) string {
	endpoint = strings.TrimLeft(endpoint, "/")
	if b.base == "" {
		return "/" + endpoint
	}
	return b.base + "/" + endpoint
}

// Absolute reports whether built URLs carry a scheme and host.
func (b Builder) Absolute() bool {
	return b.base != ""
}
