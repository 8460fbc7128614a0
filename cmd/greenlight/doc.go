// Command greenlight is the CLI for the analysis pipeline: it runs scripts
// through the staged breakdown, manages stored projects, and handles export,
// import, and share codes.
package main
