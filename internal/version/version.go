package version

// Version values are set at build time using -ldflags.
var Version = "dev"
var Built = ""
var GitCommit = ""
