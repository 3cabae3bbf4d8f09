package lsp

// Methods the server handles.
const (
	MethodInitialize             = "initialize"
	MethodInitialized            = "initialized"
	MethodShutdown               = "shutdown"
	MethodExit                   = "exit"
	MethodDidOpen                = "textDocument/didOpen"
	MethodDidChange              = "textDocument/didChange"
	MethodDidSave                = "textDocument/didSave"
	MethodDidClose               = "textDocument/didClose"
	MethodDidChangeConfiguration = "workspace/didChangeConfiguration"
	MethodWillRenameFiles        = "workspace/willRenameFiles"
	MethodDidRenameFiles         = "workspace/didRenameFiles"
	MethodExecuteCommand         = "workspace/executeCommand"
	MethodWorkDoneProgressCancel = "window/workDoneProgress/cancel"
)

// Methods the server sends to the client.
const (
	MethodPublishDiagnostics     = "textDocument/publishDiagnostics"
	MethodWorkDoneProgressCreate = "window/workDoneProgress/create"
	MethodProgress               = "$/progress"
	MethodShowMessage            = "window/showMessage"
	MethodLogMessage             = "window/logMessage"
	MethodConfiguration          = "workspace/configuration"
)
