package ir

// Version is the branchpoll release reported by the CLI and /healthz.
const Version = "0.1.0"
