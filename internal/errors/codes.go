package errors

import (
	"google.golang.org/grpc/codes"
)

// Code classifies a failure. Codes are the gRPC status names so they read the
// same in logs and on the wire.
type Code string

// Error codes
const (
	CodeOK                 Code = "OK"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeResourceExhausted  Code = "RESOURCE_EXHAUSTED"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeUnimplemented      Code = "UNIMPLEMENTED"
	CodeInternal           Code = "INTERNAL"
	CodeUnavailable        Code = "UNAVAILABLE"
)

var grpcCodes = map[Code]codes.Code{
	CodeOK:                 codes.OK,
	CodeInvalidArgument:    codes.InvalidArgument,
	CodeNotFound:           codes.NotFound,
	CodeAlreadyExists:      codes.AlreadyExists,
	CodeResourceExhausted:  codes.ResourceExhausted,
	CodeFailedPrecondition: codes.FailedPrecondition,
	CodeUnimplemented:      codes.Unimplemented,
	CodeInternal:           codes.Internal,
	CodeUnavailable:        codes.Unavailable,
}

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// GRPCCode returns the matching gRPC code, codes.Unknown for an unknown code
func (c Code) GRPCCode() codes.Code {
	if code, ok := grpcCodes[c]; ok {
		return code
	}
	return codes.Unknown
}

// CodeFromGRPC is the inverse of GRPCCode. gRPC codes without a counterpart
// become CodeInternal.
func CodeFromGRPC(code codes.Code) Code {
	for c, g := range grpcCodes {
		if g == code {
			return c
		}
	}
	return CodeInternal
}
