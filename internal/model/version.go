package model

// Version is the bundlecore runtime version.
const Version = "0.1.0"
