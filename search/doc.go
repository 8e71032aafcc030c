// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package search provides hybrid graph and vector retrieval over policy clauses.
//
// A search combines two independent signals:
//   - Graph retrieval: typed predicates over clause type, keywords and risk
//     types, scored by the fraction of evaluated predicates a clause satisfies
//   - Vector retrieval: cosine similarity between the question embedding and
//     sub-chunk embeddings
//
// Rank merges both result lists by item identity, blends the scores with a
// tunable weight alpha, discounts items whose semantic type disagrees with
// the query intent and orders the result deterministically. Expander follows
// cross references outward from the ranked items so answers can cite the
// clauses they depend on.
//
// Searcher ties the pieces together for one question, running both
// retrievers concurrently:
//
//	searcher, err := search.NewSearcher(store, embedder,
//	    search.WithConfig(search.DefaultConfig()))
//	resp, err := searcher.Search(ctx, search.Query{
//	    Question: "화재로 인한 손해는 보상되나요?",
//	    Intent:   core.IntentCoverage,
//	    Keywords: []string{"화재"},
//	})
package search
