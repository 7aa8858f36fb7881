package sources

// builtinRules is the publisher table for Korean news search results.
// Prefixes are stored without scheme, "www." or the host markers stripped by
// Normalize, and kept in ascending order.
var builtinRules = []Rule{
	{Prefix: "ajunews.com", Label: "아주경제"},
	{Prefix: "allurekorea.com", Label: "얼루어 코리아"},
	{Prefix: "arena.co.kr", Label: "아레나 옴므 플러스"},
	{Prefix: "asiae.co.kr", Label: "아시아경제"},
	{Prefix: "biz.chosun.com", Label: "조선비즈"},
	{Prefix: "biz.heraldcorp.com", Label: "헤럴드경제"},
	{Prefix: "bntnews.co.kr", Label: "bnt뉴스"},
	{Prefix: "busan.com", Label: "부산일보"},
	{Prefix: "chosun.com", Label: "조선일보"},
	{Prefix: "chosun.com/entertainments", Label: "조선일보 연예"},
	{Prefix: "chosun.com/sports", Label: "조선일보 스포츠"},
	{Prefix: "cine21.com", Label: "씨네21"},
	{Prefix: "cosmopolitan.co.kr", Label: "코스모폴리탄"},
	{Prefix: "dispatch.co.kr", Label: "디스패치"},
	{Prefix: "donga.com", Label: "동아일보"},
	{Prefix: "dt.co.kr", Label: "디지털타임스"},
	{Prefix: "edaily.co.kr", Label: "이데일리"},
	{Prefix: "elle.co.kr", Label: "엘르"},
	{Prefix: "ent.sbs.co.kr", Label: "SBS연예뉴스"},
	{Prefix: "esquirekorea.co.kr", Label: "에스콰이어"},
	{Prefix: "etnews.com", Label: "전자신문"},
	{Prefix: "fnnews.com", Label: "파이낸셜뉴스"},
	{Prefix: "gqkorea.co.kr", Label: "GQ 코리아"},
	{Prefix: "hani.co.kr", Label: "한겨레"},
	{Prefix: "hankookilbo.com", Label: "한국일보"},
	{Prefix: "hankyung.com", Label: "한국경제"},
	{Prefix: "hankyung.com/entertainment", Label: "한국경제 연예"},
	{Prefix: "harpersbazaar.co.kr", Label: "하퍼스 바자 코리아"},
	{Prefix: "heraldcorp.com", Label: "헤럴드경제"},
	{Prefix: "imaeil.com", Label: "매일신문"},
	{Prefix: "imbc.com", Label: "MBC"},
	{Prefix: "inews24.com", Label: "아이뉴스24"},
	{Prefix: "isplus.com", Label: "일간스포츠"},
	{Prefix: "ize.co.kr", Label: "아이즈"},
	{Prefix: "joongang.co.kr", Label: "중앙일보"},
	{Prefix: "joynews24.com", Label: "조이뉴스24"},
	{Prefix: "jtbc.co.kr", Label: "JTBC"},
	{Prefix: "kbs.co.kr", Label: "KBS"},
	{Prefix: "khan.co.kr", Label: "경향신문"},
	{Prefix: "kmib.co.kr", Label: "국민일보"},
	{Prefix: "kookje.co.kr", Label: "국제신문"},
	{Prefix: "marieclairekorea.com", Label: "마리끌레르 코리아"},
	{Prefix: "maxmovie.com", Label: "맥스무비"},
	{Prefix: "mbn.co.kr", Label: "MBN"},
	{Prefix: "mediatoday.co.kr", Label: "미디어오늘"},
	{Prefix: "mk.co.kr", Label: "매일경제"},
	{Prefix: "mk.co.kr/star", Label: "매경 스타투데이"},
	{Prefix: "mt.co.kr", Label: "머니투데이"},
	{Prefix: "munhwa.com", Label: "문화일보"},
	{Prefix: "mydaily.co.kr", Label: "마이데일리"},
	{Prefix: "news1.kr", Label: "뉴스1"},
	{Prefix: "newsen.com", Label: "뉴스엔"},
	{Prefix: "newsis.com", Label: "뉴시스"},
	{Prefix: "nocutnews.co.kr", Label: "노컷뉴스"},
	{Prefix: "ohmynews.com", Label: "오마이뉴스"},
	{Prefix: "osen.co.kr", Label: "OSEN"},
	{Prefix: "pressian.com", Label: "프레시안"},
	{Prefix: "sbs.co.kr", Label: "SBS"},
	{Prefix: "sedaily.com", Label: "서울경제"},
	{Prefix: "segye.com", Label: "세계일보"},
	{Prefix: "seoul.co.kr", Label: "서울신문"},
	{Prefix: "singleslife.com", Label: "싱글즈"},
	{Prefix: "sports.chosun.com", Label: "스포츠조선"},
	{Prefix: "sports.khan.co.kr", Label: "스포츠경향"},
	{Prefix: "sportsseoul.com", Label: "스포츠서울"},
	{Prefix: "sportsworldi.com", Label: "스포츠월드"},
	{Prefix: "spotvnews.co.kr", Label: "스포티비뉴스"},
	{Prefix: "star.mt.co.kr", Label: "스타뉴스"},
	{Prefix: "star.ytn.co.kr", Label: "YTN Star"},
	{Prefix: "starnewskorea.com", Label: "스타뉴스"},
	{Prefix: "stoo.com", Label: "스포츠투데이"},
	{Prefix: "tenasia.co.kr", Label: "텐아시아"},
	{Prefix: "topstarnews.net", Label: "톱스타뉴스"},
	{Prefix: "tvreport.co.kr", Label: "TV리포트"},
	{Prefix: "vogue.co.kr", Label: "보그 코리아"},
	{Prefix: "wkorea.com", Label: "W 코리아"},
	{Prefix: "wowtv.co.kr", Label: "한국경제TV"},
	{Prefix: "xportsnews.com", Label: "엑스포츠뉴스"},
	{Prefix: "yna.co.kr", Label: "연합뉴스"},
	{Prefix: "yonhapnewstv.co.kr", Label: "연합뉴스TV"},
	{Prefix: "ytn.co.kr", Label: "YTN"},
	{Prefix: "zdnet.co.kr", Label: "지디넷코리아"},
}

// BuiltinRules returns a copy of the built-in table.
func BuiltinRules() []Rule {
	out := make([]Rule, len(builtinRules))
	copy(out, builtinRules)
	return out
}
