package anthropic

// BuildCachedSystemBlocks wraps a system prompt that is reused across many
// requests of one run in a 5-minute cache breakpoint.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
