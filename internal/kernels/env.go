package kernels

import "os"

// fastExpFlag opts into this package's float32 Taylor approximation of
// exp instead of the default math.Exp path. Off by default: the default
// must match the reference implementation's expf closely enough to meet
// its tolerance-based regression checks.
var fastExpFlag = os.Getenv("RWKV_FAST_EXP") == "1"

func fastExp() bool {
	return fastExpFlag
}
