// Package codesign resolves the signing identity an archived iOS app was
// built with.
//
// The profile UUID is read from the app's embedded.mobileprovision, mapped to
// the installed profile file of the same UUID and the profile's display name
// is extracted from it. That name is what the export tool expects.
//
// # Basic Usage
//
//	id, err := codesign.ExtractProfileIdentifier(archivePath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	identity, err := codesign.LoadInstalledProfile(profilesDir, id)
//
// The package also decodes provisioning profiles structurally (CMS envelope
// plus plist payload) and inspects the app executable for diagnostics.
package codesign
