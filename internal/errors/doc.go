// Package errors provides coded errors for numenera-api.
//
// Every error returned across a package boundary carries a Code. Codes map onto
// gRPC status codes in the handler layer, so orchestrators only decide what kind
// of failure happened:
//
//	if cfg.Stat == numenera.StatNone {
//	    return errors.FailedPrecondition("you must provide a stat before using Effort")
//	}
//
// Wrapping keeps the code of the innermost coded error:
//
//	out, err := repo.Get(ctx, actor.GetInput{ID: id})
//	if err != nil {
//	    return nil, errors.Wrap(err, "failed to load actor")
//	}
//
// Config structs validate their dependencies with a ValidationBuilder:
//
//	vb := errors.NewValidationBuilder()
//	if c.ActorRepo == nil {
//	    vb.RequiredField("ActorRepo")
//	}
//	return vb.Build()
//
// Handlers convert with ToGRPCError before returning to the client. Metadata
// rides along as an ErrorInfo detail, and FromGRPCError restores it on the
// client side:
//
//	_, err := client.Call(ctx, v1alpha1.MethodSubmit, req)
//	if errors.Is(err, effort.ErrInsufficientPool) {
//	    cost := errors.GetMeta(err)["cost"]
//	}
package errors
