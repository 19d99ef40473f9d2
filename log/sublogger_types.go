package log

// Global vars related to the logger package
var (
	Global     = NewSubLogger("LOG")
	ForexSys   = NewSubLogger("FOREX")
	RequestSys = NewSubLogger("REQUESTER")
	ConfigMgr  = NewSubLogger("CONFIG")
)
