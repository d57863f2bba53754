// Package qfa embeds the hierarchical feedback classifier in a Go program.
//
// Quick start:
//
//	q, err := qfa.New(qfa.WithModelDir("models/"), qfa.WithCacheDir(".qfa"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	origin := qfa.Origin{
//	    System:      qfa.SystemKobo,
//	    ID:          "aXyZ",
//	    Token:       os.Getenv("KOBO_TOKEN"),
//	    LevelFields: []string{"type", "category"},
//	}
//	out, _ := q.Classify(ctx, origin, "the distribution started two hours late")
//	fmt.Println(out.Levels[0].Label, out.Levels[1].Label)
//
// A QFA is safe for concurrent use. Create once, reuse across requests.
package qfa
