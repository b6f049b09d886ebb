package contract

// ENSRegistry and ENSResolver cover forward (addr) and reverse (name)
// resolution, EIP-137 and EIP-181.
var (
	ENSRegistry = mustParseABI(ensRegistryJSON)
	ENSResolver = mustParseABI(ensResolverJSON)
)

func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          "ens-registry",
		Name:        "ENS Registry",
		Description: "Maps a namehash to its owner and resolver.",
		ABI:         ENSRegistry,
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "ens-resolver",
		Name:        "ENS Public Resolver",
		Description: "Forward addr() and reverse name() records.",
		ABI:         ENSResolver,
	})
}

const ensRegistryJSON = `[
  {"type":"function","name":"resolver","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  {"type":"function","name":"owner","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
]`

const ensResolverJSON = `[
  {"type":"function","name":"addr","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  {"type":"function","name":"name","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"}
]`
