package digest

// DefaultUserProfile describes the reader the digest is written for.
const DefaultUserProfile = `
Uživatel je čech, žije v Praze.
Zajímá ho politika, technologie, ekonomie a veřejné dění.
Rád by měl přehled o tom, co hýbe společností.
`

// DefaultNewsValues is the rubric articles are scored against.
const DefaultNewsValues = `
Zpravodajské hodnoty:
1. Aktualita - čerstvost události
2. Blízkost - geografická nebo kulturní blízkost
3. Dopad - počet lidí, které událost ovlivňuje
4. Prominentnost - zapojení známých osobností
5. Konflikt - spory, konflikty, kontroverze
6. Neobvyklost - překvapivé, neočekávané události
7. Lidský zájem - emocionální příběhy
8. Relevance - důležitost pro společnost
`

const categorizePrompt = `You are an expert in news analysis. Your task is to evaluate the relevance of articles according to user profile and news values.

%s

%s

For each article determine:
1. Relevance category: Nezajímavé, Málo zajímavé, Velmi zajímavé, Nezbytné
2. News value score: 1-10 (overall importance score)
3. Which news values are present
4. Main country (e.g., Česko, Rusko, USA, Německo)
5. Main person (if any, otherwise empty string)
6. Main topic (politika, ekonomika, technologie, kultura, bezpečnost)
7. Brief reasoning in Czech

Respond in JSON array format with objects:
{
  "article_id": <id>,
  "relevance": "<kategorie>",
  "news_value_score": <1-10>,
  "news_values": ["hodnota1", "hodnota2"],
  "country": "<země>",
  "person": "<osoba nebo prázdný řetězec>",
  "topic": "<téma>",
  "reasoning": "<zdůvodnění v češtině>"
}

Articles to evaluate:
%s

Respond only with JSON array, no additional text.`

const narrativePrompt = `Jsi zkušený novinář. Tvým úkolem je napsat stručný přehled nejdůležitějších zpráv.

%s

KRITICKÁ PRAVIDLA SPOJOVÁNÍ:
Priority pro spojování zpráv do jedné věty:
1. NEJVYŠŠÍ: Týkají se stejné osoby (person)
2. VYSOKÁ: Týkají se stejné země (kromě "Česko" - české zprávy nespojuj)
3. STŘEDNÍ: Mají podobný nebo opačný dopad
4. NÍZKÁ: Jsou ze stejného tématu (topic)

STRUKTURA:
- Délka: 6-8 vět (max 600 znaků)
- Začni hodnotícím komentářem, pak vyjmenuj zprávy jako argumenty
- Příklad: "Rusko pokračuje v represi - perzekuce intelektuálů se stupňuje a Červený kříž spolupracuje s Kremlem."
- Řaď zprávy podle score (nejvyšší první)

STYL:
- Kratší fráze: "stalo se" místo "došlo k", "v" místo "v oblasti"
- Plynulý text, ne seznam
- Tón: rychlý, výstižný, čtivý

Články k zpracování (seřazené podle důležitosti):
%s

Napiš přehled v češtině:`
