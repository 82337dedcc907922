package hooks

import (
	"github.com/Readm/axilite_sim/logging"
)

const (
	PluginTrace          = "trace"
	PluginHandshakeTrace = "handshake-trace"
)

// RegisterBuiltins adds the tracing plugins shipped with the simulator.
func RegisterBuiltins(reg *Registry) error {
	traceDesc := PluginDescriptor{
		Name:        PluginTrace,
		Category:    PluginCategoryInstrumentation,
		Description: "logs every monitored and driven transaction at debug level",
	}
	if err := reg.Register(PluginTrace, traceDesc, func(b *PluginBroker) error {
		log := logging.For("trace")
		b.RegisterBundle(traceDesc, HookBundle{
			Observed: []ObservedHook{func(ctx *ObservedContext) error {
				log.Debug().
					Str("source", ctx.Source).
					Int("cycle", ctx.Cycle).
					Str("kind", ctx.Transaction.Kind()).
					Uint32("addr", ctx.Transaction.Address).
					Uint32("data", ctx.Transaction.Data).
					Stringer("resp", ctx.Transaction.Response).
					Msg("observed")
				return nil
			}},
			Driven: []DrivenHook{func(ctx *DrivenContext) error {
				log.Debug().
					Str("source", ctx.Source).
					Int("cycle", ctx.Cycle).
					Str("kind", ctx.Transaction.Kind()).
					Uint32("addr", ctx.Transaction.Address).
					Uint32("data", ctx.Transaction.Data).
					Stringer("resp", ctx.Transaction.Response).
					Msg("driven")
				return nil
			}},
		})
		return nil
	}); err != nil {
		return err
	}

	hsDesc := PluginDescriptor{
		Name:        PluginHandshakeTrace,
		Category:    PluginCategoryInstrumentation,
		Description: "logs every channel transfer at trace level",
	}
	return reg.Register(PluginHandshakeTrace, hsDesc, func(b *PluginBroker) error {
		log := logging.For("wire")
		b.RegisterBundle(hsDesc, HookBundle{
			Handshake: []HandshakeHook{func(ctx *HandshakeContext) error {
				log.Trace().Int("cycle", ctx.Cycle).Stringer("chan", ctx.Channel).Msg("transfer")
				return nil
			}},
		})
		return nil
	})
}
