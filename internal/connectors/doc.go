// Package connectors provides the document sources lexroute reads from.
// The only source is the local document root; see the filesystem package.
package connectors
