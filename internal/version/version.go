package version

// Version is the current version of the video chat CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/AyushKoirala03/Video-chatting/internal/version.Version=v1.0.0'"
var Version = "dev"
