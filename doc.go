// Package main provides the xcexport CLI, which exports an Xcode archive as
// an installable .ipa using the provisioning profile the archive was built
// with.
//
// The signing and packaging itself is done by xcodebuild; xcexport picks the
// archive, finds the matching installed profile, clears the destination and
// runs the export.
//
// # Installation
//
//	go install github.com/aluedeke/go-xcexport@latest
package main
