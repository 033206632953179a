package router

import "github.com/zen-systems/modelmux/pkg/adapter"

// Annotate returns a copy of resp whose provider metadata additionally holds
// meta under Namespace. resp and its metadata map are left untouched.
func Annotate(resp *adapter.Response, meta SelectionMetadata) *adapter.Response {
	var out adapter.Response
	if resp != nil {
		out = *resp
	}
	out.ProviderMetadata = mergeMetadata(out.ProviderMetadata, meta)
	return &out
}

// AnnotateStream wraps s so that its finish event carries meta under
// Namespace. All other events pass through unchanged; Next, Err and Close are
// forwarded without buffering.
func AnnotateStream(s adapter.Stream, meta SelectionMetadata) adapter.Stream {
	return &annotatedStream{Stream: s, meta: meta}
}

type annotatedStream struct {
	adapter.Stream
	meta SelectionMetadata
}

func (s *annotatedStream) Current() adapter.StreamEvent {
	ev := s.Stream.Current()
	if ev.Type == adapter.EventFinish {
		ev.ProviderMetadata = mergeMetadata(ev.ProviderMetadata, s.meta)
	}
	return ev
}

func mergeMetadata(src map[string]any, meta SelectionMetadata) map[string]any {
	out := make(map[string]any, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	out[Namespace] = meta
	return out
}
