package usecase

// CleanMessage is exported for testing
var CleanMessage = cleanMessage

// CleanReply is exported for testing
var CleanReply = cleanReply
