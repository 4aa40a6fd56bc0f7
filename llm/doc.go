// Package llm is the canonical, provider-agnostic model of a generation call.
//
// Design goals:
//   - Stable domain model: callers build requests from canonical types (Message, ContentBlock,
//     GenerationControls, ToolDefinition) and never see vendor field names.
//   - Explicit streaming: adapters emit StreamEvent values (message start/end, content, thinking,
//     tool calls, search activity) through a pull-based Stream; Collector rebuilds the final turn.
//   - Controlled escape hatch: GenerationControls.ProviderSpecific is a raw overlay applied last
//     to the wire body and never interpreted here.
//
// Adapters live under llm/providers and are responsible for mapping between the canonical model
// and each provider family's wire protocol.
package llm
