// Package registry holds the provider and model catalog.
//
// A [Registry] is built once at process start, either from YAML with
// [Load] / [LoadFile] or from the embedded catalog with [Default], and is
// read-only afterwards. Lookups return copies, so callers can never mutate
// the shared catalog and concurrent calls need no locking.
//
//	reg := registry.Default()
//	model, err := reg.LookupModel("openai", "gpt-4.1-mini")
//	if llmcore.IsKind(err, llmcore.KindModelNotFound) {
//	    // unknown model
//	}
//
// # Catalog Format
//
// The YAML catalog maps provider ids to provider entries:
//
//	openai:
//	  credentialEnvVar: OPENAI_API_KEY
//	  models:
//	    gpt-4.1-mini:
//	      apiStyle: sync
//	      jobAlternate: true
//	      pricing: {inputPerMillion: 0.40, outputPerMillion: 1.60}
//	      parameters:
//	        temperature: {type: float, default: 0.7, min: 0, max: 2}
//	      builtInTools:
//	        - id: web_search
//	          description: Performs a web search.
//	          toolConfig: {type: web_search, search_context_size: auto}
//
// A provider may also set driver (openai, anthropic, google or vertex;
// defaults to the provider id) and baseURL, which lets OpenAI-compatible
// servers such as Perplexity or Ollama reuse the openai driver:
//
//	ollama:
//	  driver: openai
//	  baseURL: http://localhost:11434/v1
//	  models:
//	    llama2: {}
//
// Parameter declaration order is significant: it decides which value wins
// when mutually exclusive parameters are both set.
package registry
