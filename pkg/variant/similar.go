package variant

// hanSimilar lists, per vocabulary character, characters commonly swapped in
// for it because they look alike.
var hanSimilar = map[rune][]rune{
	'赌': {'渧', '睹', '堵'},
	'博': {'搏', '傅', '膊'},
	'有': {'友', '右'},
	'色': {'涩'},
	'情': {'请', '清'},
	'毒': {'毐', '每'},
	'枪': {'抢', '呛'},
	'诈': {'炸', '咋'},
	'骗': {'编', '偏'},
	'黄': {'簧', '璜'},
	'暴': {'爆', '瀑'},
	'钱': {'浅', '践'},
}

// homoglyphs groups Latin, Cyrillic, Greek and Coptic letters that render
// (nearly) identically. Every member is a look-alike of every other member.
var homoglyphs = [][]rune{
	{'a', 'а', 'α'},
	{'c', 'с', 'ϲ'},
	{'e', 'е', 'ё', 'ⲉ'},
	{'i', 'і', 'ι'},
	{'k', 'к', 'κ'},
	{'o', 'о', 'ο', '0'},
	{'p', 'р', 'ρ'},
	{'x', 'х', 'χ', 'ⲭ'},
	{'y', 'у', 'ү', 'ⲩ'},
	{'A', 'А', 'Α'},
	{'B', 'В', 'Β'},
	{'C', 'С', 'Ϲ'},
	{'E', 'Е', 'Ε'},
	{'H', 'Н', 'Η'},
	{'K', 'К', 'Κ'},
	{'M', 'М', 'Μ'},
	{'O', 'О', 'Ο'},
	{'P', 'Р', 'Ρ'},
	{'T', 'Т', 'Τ'},
	{'X', 'Х', 'Χ', 'Ⲭ'},
	{'Y', 'У', 'Υ'},
}

var similarTable = buildSimilarTable()

func buildSimilarTable() map[rune][]rune {
	table := make(map[rune][]rune, len(hanSimilar)+4*len(homoglyphs))
	for r, alts := range hanSimilar {
		table[r] = append(table[r], alts...)
	}
	for _, group := range homoglyphs {
		for _, r := range group {
			for _, alt := range group {
				if alt != r {
					table[r] = append(table[r], alt)
				}
			}
		}
	}
	return table
}
