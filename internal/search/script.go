package search

import "strings"

// ScriptLang is the scripting language of the hybrid scoring script.
const ScriptLang = "painless"

// Script parameter names.
const (
	ParamQueryVector       = "query_vector"
	ParamMinScoreThreshold = "min_score_threshold"
	ParamBeta              = "beta"
	ParamCategoryBoostByID = "category_boost_by_id"
)

const scriptBase = `double vectorScore = (cosineSimilarity(params.query_vector, 'product_vector') + 1.0) / 2.0;
double lexicalScore = Math.min(_score, 5.0) / 5.0;
double base = 0.9 * vectorScore + 0.1 * lexicalScore;
if (base < params.min_score_threshold) {
  return 0.0;
}
`

const scriptBoost = `double categoryBoost = 0.0;
if (doc['categoryId'].size() != 0) {
  String categoryKey = String.valueOf(doc['categoryId'].value);
  def rawBoost = params.category_boost_by_id.get(categoryKey);
  if (rawBoost != null) {
    categoryBoost = ((Number) rawBoost).doubleValue();
  }
}
double finalScore = base * (1.0 + params.beta * categoryBoost);
return finalScore;
`

const scriptPlain = `return base;
`

// ScriptSource returns the hybrid scoring script. The vector term is
// cosine similarity shifted into [0,1], the lexical term is _score
// saturated at 5. With applyBoost the blended score is multiplied by
// 1 + beta * boost of the document's category.
func ScriptSource(applyBoost bool) string {
	var b strings.Builder
	b.WriteString(scriptBase)
	if applyBoost {
		b.WriteString(scriptBoost)
	} else {
		b.WriteString(scriptPlain)
	}
	return b.String()
}
