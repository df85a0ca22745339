package errs

// 错误码分段：11xx 握手/鉴权，12xx 协议，15xx 存储
const (
	ServerInternalError = 500

	TokenMissingError  = 1101
	TokenInvalidError  = 1102
	TokenSubjectError  = 1103
	PayloadDecodeError = 1201
	ArgsError          = 1202
	StorageError       = 1501
)

var (
	ErrTokenMissing  = NewCodeError(TokenMissingError, "access token missing")
	ErrTokenInvalid  = NewCodeError(TokenInvalidError, "access token invalid")
	ErrTokenSubject  = NewCodeError(TokenSubjectError, "token subject unusable")
	ErrPayloadDecode = NewCodeError(PayloadDecodeError, "payload decode failed")
	ErrArgs          = NewCodeError(ArgsError, "invalid argument")
	ErrStorage       = NewCodeError(StorageError, "storage operation failed")
)
