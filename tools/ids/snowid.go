package ids

import (
	"strconv"
	"sync"
	"time"
)

// 雪花ID布局: 41bit 时间戳 + 10bit 节点 + 12bit 序列
const (
	nodeBits = 10
	seqBits  = 12

	maxNodeID = (1 << nodeBits) - 1
	seqMask   = (1 << seqBits) - 1
	tsMask    = (1 << 41) - 1

	nodeShift = seqBits
	tsShift   = nodeBits + seqBits
)

type generator struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64
	seq      int64
	lastTSMS int64
}

var (
	defaultGen *generator
	once       sync.Once
)

func initDefault() {
	once.Do(func() {
		defaultGen = &generator{
			epochMS: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			nodeID:  1,
		}
	})
}

// Generate 生成一个新的雪花ID
func Generate() int64 {
	initDefault()
	return defaultGen.next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// SetNodeID 设置 nodeID（0~1023），在 main() 初始化时调用
func SetNodeID(nodeID int64) {
	initDefault()
	if nodeID < 0 || nodeID > maxNodeID {
		nodeID = 1
	}
	defaultGen.nodeID = nodeID
}

func (g *generator) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.lastTSMS {
		// 时钟回拨，原地等待追平
		time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
		now = g.lastTSMS
	}
	if now == g.lastTSMS {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			// 序列溢出，等到下一毫秒
			for now <= g.lastTSMS {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.seq = 0
	}
	g.lastTSMS = now

	ts := (now - g.epochMS) & tsMask
	return (ts << tsShift) | (g.nodeID << nodeShift) | g.seq
}
