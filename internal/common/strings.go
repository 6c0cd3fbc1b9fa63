package common

// UnknownStr is the String() value of unrecognised enum members.
const UnknownStr = "unknown"
