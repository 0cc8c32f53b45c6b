// Package manualrag embeds manual question answering in a Go program.
//
// It wires the same pipeline the manualrag server runs (segmenting, embedding,
// Redis or Valkey vector search, ranking and cited answer generation) without
// the HTTP layer.
//
//	client, _ := manualrag.New(ctx,
//	    manualrag.WithValkey("localhost:6379", ""),
//	    manualrag.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, manualrag.IngestRequest{
//	    Title: "Pump X200",
//	    Pages: []manualrag.PageText{{Page: 1, Text: text}},
//	})
//	ans, _ := client.Ask(ctx, "How do I prime the pump?")
//	fmt.Println(ans.Answer)
package manualrag
