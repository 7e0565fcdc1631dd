package bundle

import (
	"os"
	"path/filepath"
	"text/template"

	"git.home.luguber.info/inful/macbundler/internal/errors"
)

// infoPlistTemplate matches the property list the wrapper app expects.
// NSAllowsLocalNetworking lets the wrapper talk to the bundled backend on
// localhost without an ATS exception per host.
var infoPlistTemplate = template.Must(template.New("Info.plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>CFBundleName</key>
  <string>{{.AppName}}</string>
  <key>CFBundleDisplayName</key>
  <string>{{.AppName}}</string>
  <key>CFBundleIdentifier</key>
  <string>{{.BundleID}}</string>
  <key>CFBundleExecutable</key>
  <string>{{.AppName}}</string>
  <key>CFBundlePackageType</key>
  <string>APPL</string>
  <key>CFBundleShortVersionString</key>
  <string>{{.AppVersion}}</string>
  <key>CFBundleVersion</key>
  <string>{{.BuildNumber}}</string>
{{if .HasIcon}}  <key>CFBundleIconFile</key>
  <string>appicon</string>
{{end}}  <key>NSPrincipalClass</key>
  <string>NSApplication</string>
  <key>NSHighResolutionCapable</key>
  <true/>

  <key>NSAppTransportSecurity</key>
  <dict>
    <key>NSAllowsLocalNetworking</key>
    <true/>
  </dict>
</dict>
</plist>
`))

type plistData struct {
	AppName     string
	BundleID    string
	AppVersion  string
	BuildNumber string
	HasIcon     bool
}

// writeInfoPlist renders Contents/Info.plist. The icon key is emitted only
// when icon generation actually produced an .icns file.
func writeInfoPlist(appBundle string, data plistData) error {
	path := filepath.Join(appBundle, "Contents", "Info.plist")
	f, err := os.Create(path)
	if err != nil {
		return errors.FilesystemError("create Info.plist", err)
	}
	if err := infoPlistTemplate.Execute(f, data); err != nil {
		f.Close()
		return errors.FilesystemError("render Info.plist", err)
	}
	if err := f.Close(); err != nil {
		return errors.FilesystemError("write Info.plist", err)
	}
	return nil
}

// writePkgInfo writes the legacy Contents/PkgInfo marker: bundle type APPL
// with an unset creator code.
func writePkgInfo(appBundle string) error {
	path := filepath.Join(appBundle, "Contents", "PkgInfo")
	if err := os.WriteFile(path, []byte("APPL????"), 0o644); err != nil {
		return errors.FilesystemError("write PkgInfo", err)
	}
	return nil
}
