package errors

import (
	"fmt"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

// ErrorDomain is the ErrorInfo domain attached to every status this service returns
const ErrorDomain = "numenera-api"

// GRPCStatus lets status.FromError and status.Code read an *Error directly.
// Field messages of a validation failure travel as a BadRequest detail; other
// Meta travels as an ErrorInfo detail with stringified values.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(e.Code.GRPCCode(), e.Message)

	var details []protoadapt.MessageV1
	info := &errdetails.ErrorInfo{
		Reason:   e.Code.String(),
		Domain:   ErrorDomain,
		Metadata: make(map[string]string, len(e.Meta)),
	}
	for k, v := range e.Meta {
		if fields, ok := v.(map[string][]string); ok && k == MetaValidationErrors {
			details = append(details, badRequest(fields))
			continue
		}
		info.Metadata[k] = fmt.Sprint(v)
	}
	if len(info.Metadata) > 0 {
		details = append(details, info)
	}
	if len(details) == 0 {
		return st
	}

	detailed, err := st.WithDetails(details...)
	if err != nil {
		return st
	}
	return detailed
}

func badRequest(fields map[string][]string) *errdetails.BadRequest {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &errdetails.BadRequest{}
	for _, name := range names {
		for _, msg := range fields[name] {
			out.FieldViolations = append(out.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       name,
				Description: msg,
			})
		}
	}
	return out
}

// ToGRPCError converts an error to a gRPC status error
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	var customErr *Error
	if As(err, &customErr) {
		return customErr.GRPCStatus().Err()
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	return status.Error(codes.Internal, err.Error())
}

// FromGRPCError turns a status error received by a client back into an *Error,
// restoring the metadata of an ErrorInfo detail from this service.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return Wrap(err, "rpc failed")
	}

	out := &Error{
		Code:    CodeFromGRPC(st.Code()),
		Message: st.Message(),
		Cause:   err,
	}

	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if d.GetDomain() != ErrorDomain {
				continue
			}
			for k, v := range d.GetMetadata() {
				out.WithMeta(k, v)
			}
		case *errdetails.BadRequest:
			fields := make(map[string][]string)
			for _, violation := range d.GetFieldViolations() {
				fields[violation.GetField()] = append(fields[violation.GetField()], violation.GetDescription())
			}
			out.WithMeta(MetaValidationErrors, fields)
		}
	}

	return out
}
