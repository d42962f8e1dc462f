package registry

import "github.com/gagliardetto/solana-go"

// Well-known mints.
const (
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	MintWSOL = "So11111111111111111111111111111111111111112"
)

// DefaultVenues is the mainnet venue table.
var DefaultVenues = map[string]string{
	// Jupiter
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4": "Jupiter",
	"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB": "Jupiter V4",
	"JUP3c2Uh3WA4Ng34tw6kPd2G4C5BB21Xo36Je1s32Ph": "Jupiter V3",

	// Raydium
	"RayqJ5UKhvHV8S5pJ9B9kjEgqJrjbqd8e4FrFUbLFVv":  "Raydium AMM V1",
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "Raydium AMM V4",
	"CAMMCzo5YL8w4VFF8KVHrK22GGUQpMAS4aeMNdTOzBTa": "Raydium CPMM",

	// Orca
	"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP": "Orca Whirlpool",
	"DjVE6JNiYqPL2QXyCUUh8rNjHrbz9hXHNYt99MQ59qw1": "Orca Aquafarm",

	// Serum
	"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin": "Serum DEX V3",
	"EUqojwWA2rd19FZrzeBncJsm38Jm1hEhE3zsmX3bRc2o": "Serum DEX V2",
	"BJ3jrUzddfuSrZHXSCxMbUDKuq68MoGCpM7pJ6cBiN9b": "Serum DEX V1",

	// Meteora
	"Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB": "Meteora",
	"amm5vHxfJR8BfTTZR9K3kbKHgqhNqTJmWHLwJv8EGwN":  "Meteora Dynamic AMM",

	"PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY":  "Phoenix",
	"opnb2LAfJYbRMAHHvqjCwQxanZn7ReEHp1k81EohpZb":  "Openbook",
	"2wT8Yq49kHgDzXuPxZSaeLaH1qbmGXtEyPy64bL7aD3c": "Lifinity",
	"SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ":  "Saber",
	"CURVGoZn8zycx6FXwwevgBTB2gVvdbGTEpvMJDbgs2t4": "Aldrin AMM",
	"MERLuDFBMmsHnsBPZw2sDQZHvXFMwp8EdjudcU2HKky":  "Mercurial",
	"CTMAxxk34HjKWxQ3QLZK1HpaLXmBveao3ESePXbiyfzh": "Cropper",
	"6MLxLqiXaaSUpkgMnWDTuejNZEz3kE7k2woyHGVFw319": "Crema",
	"FLUXubRmkEi2q6K3Y9kBPg9248ggaZVsoSFhtJHSrm1X": "Fluxbeam",
	"HyaB3W9q6XdA5xwpU4XnSZV94htfmbmqJXZcEbRaJutt": "Invariant",
	"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P":  "Pump.fun",
}

// DefaultInfrastructure lists system, token, memo, sysvar, staking,
// metadata and oracle programs. None of them is ever swap evidence.
var DefaultInfrastructure = []string{
	"ComputeBudget111111111111111111111111111111",
	"AddressLookupTab1e1111111111111111111111111",
	solana.SystemProgramID.String(),

	// token programs are evaluated separately as token ops
	solana.TokenProgramID.String(),
	solana.Token2022ProgramID.String(),
	solana.SPLAssociatedTokenAccountProgramID.String(),

	solana.MemoProgramID.String(),
	"Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo",
	"noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV",

	solana.SysVarRentPubkey.String(),
	solana.SysVarClockPubkey.String(),
	"SysvarRecentB1ockHashes11111111111111111111",
	"SysvarS1otHashes111111111111111111111111111",
	solana.StakeProgramID.String(),
	solana.VoteProgramID.String(),

	"metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s",
	"p1exdMJcjVao65QdewkaZRUnU6VPSXhus9n2GzWfh98",
	"auctxRXPeJoc4817jDhf4HbjnhEcr1cCXenosMhK5R8",

	// Pyth
	"FsJ3A3u2vn5cTVofAjvy6y5kwABJAqYWpe4975bi2epH",
	"gSbePebfvPy7tRqimPoVecS2UsBvYv46ynrzWocc92s",
}

// DefaultSymbols maps common mints to display symbols.
var DefaultSymbols = map[string]string{
	MintUSDC: "USDC",
	MintUSDT: "USDT",
	MintWSOL: "SOL",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1":  "bSOL",
	"7Q2afV64in6N6SeZsAAB81TJzwDoD6zpqmHkzi9Dcavn": "JSOL",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": "RAY",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs": "ETH",
	"9n4nbM75f5Ui33ZbPYXn59EwSgE8CGsHtAeTH5YFeJ9E": "BTC",
}

// StableMints are the USD stable coins used for PnL estimates.
var StableMints = []string{MintUSDC, MintUSDT}

// DefaultKnownBots are wallets previously confirmed as extractive.
var DefaultKnownBots = []string{
	"5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1",
	"DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
	"HfoTxFR1Tm6kGmWgYWD6J7YHVy1UwqSULUGVLXkJqaKN",
}

// defaultPrefixes are checked in order; the first match wins.
var defaultPrefixes = []prefixRule{
	{"JUP", "Jupiter"},
	{"Ray", "Raydium"},
	{"9W9", "Orca"},
	{"Swr", "Switchboard"},
	{"CAM", "Raydium CPMM"},
	{"Eo7", "Meteora"},
	{"Pho", "Phoenix"},
	{"opn", "Openbook"},
	{"2wT", "Lifinity"},
	{"SSw", "Saber"},
}
