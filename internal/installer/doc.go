// Package installer registers the server with Claude Desktop.
//
// The config file is edited as raw JSON with gjson and sjson so keys the
// installer does not own survive byte for byte apart from indentation.
// Every write is preceded by a timestamped backup plus a .meta file
// describing it.
package installer
