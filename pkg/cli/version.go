package cli

// Version may be overridden at build time with
// -ldflags "-X github.com/jlrickert/textpix/pkg/cli.Version=v1.2.3".
var Version = "dev"
