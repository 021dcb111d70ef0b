package manager

import (
	"errors"
	"github.com/zhukovaskychina/xmysql-server/logger"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/storage/store/mvcc"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/urm"
	"sync"
	"sync/atomic"
	"time"
)

// defaultUndoDBID is used for every transaction's urm.Request: this
// transaction manager does not itself model multiple databases, so every
// request is registered under the same database id.
const defaultUndoDBID urm.DBID = 1

var (
	ErrInvalidTrxState = errors.New("invalid transaction state")
)

// 事务状态
const (
	TRX_STATE_NOT_STARTED uint8 = iota
	TRX_STATE_ACTIVE
	TRX_STATE_PREPARED
	TRX_STATE_COMMITTED
	TRX_STATE_ROLLED_BACK
)

// 事务隔离级别
const (
	TRX_ISO_READ_UNCOMMITTED uint8 = iota
	TRX_ISO_READ_COMMITTED
	TRX_ISO_REPEATABLE_READ
	TRX_ISO_SERIALIZABLE
)

// Transaction 表示一个事务
type Transaction struct {
	ID             int64          // 事务ID
	State          uint8          // 事务状态
	IsolationLevel uint8          // 隔离级别
	StartTime      time.Time      // 开始时间
	LastActiveTime time.Time      // 最后活跃时间
	ReadView       *mvcc.ReadView // MVCC读视图
	UndoLogs       []UndoLogEntry // Undo日志
	RedoLogs       []RedoLogEntry // Redo日志
	IsReadOnly     bool           // 是否只读事务

	// UndoReq is this transaction's slot in the undo request manager,
	// allocated on Begin. It is nil when the manager's arena was already
	// at capacity: the transaction still runs, it just isn't tracked for
	// background undo scheduling.
	UndoReq *urm.Request
}

// TransactionManager 事务管理器
type TransactionManager struct {
	mu                 sync.RWMutex
	nextTrxID          int64                  // 最近分配的事务ID（下一个事务ID为其加一）
	activeTransactions map[int64]*Transaction // 活跃事务

	// 日志管理器
	redoManager *RedoLogManager
	undoManager *UndoLogManager

	// urmMgr schedules which aborted transaction's undo runs in the
	// background versus inline on the caller, per spec.md.
	urmMgr *urm.Manager

	// 默认配置
	defaultIsolationLevel uint8
	defaultTimeout        time.Duration
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(redoDir, undoDir string) (*TransactionManager, error) {
	redoManager, err := NewRedoLogManager(redoDir, 1000)
	if err != nil {
		return nil, err
	}

	undoManager, err := NewUndoLogManager(undoDir)
	if err != nil {
		return nil, err
	}

	return &TransactionManager{
		nextTrxID:             1,
		activeTransactions:    make(map[int64]*Transaction),
		redoManager:           redoManager,
		undoManager:           undoManager,
		urmMgr:                urm.NewManager(urm.DefaultCapacity, urm.DefaultCapacity/2),
		defaultIsolationLevel: TRX_ISO_REPEATABLE_READ,
		defaultTimeout:        time.Hour,
	}, nil
}

// Begin 开始新事务
func (tm *TransactionManager) Begin(isReadOnly bool, isolationLevel uint8) (*Transaction, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// 分配事务ID
	trxID := atomic.AddInt64(&tm.nextTrxID, 1)

	// 创建事务对象
	trx := &Transaction{
		ID:             trxID,
		State:          TRX_STATE_ACTIVE,
		IsolationLevel: isolationLevel,
		StartTime:      time.Now(),
		LastActiveTime: time.Now(),
		IsReadOnly:     isReadOnly,
	}

	// 创建ReadView（对于RR和RC隔离级别）
	if isolationLevel >= TRX_ISO_READ_COMMITTED {
		trx.ReadView = tm.createReadView(trxID)
	}

	// 登记到 undo request manager，供中止时调度 undo
	trx.UndoReq = tm.urmMgr.Register(urm.FXID(trxID), defaultUndoDBID)
	if trx.UndoReq == nil {
		logger.Warnf("transaction %d: undo request manager at capacity, background undo scheduling disabled for this transaction", trxID)
	}

	// 记录活跃事务
	tm.activeTransactions[trxID] = trx

	return trx, nil
}

// Commit 提交事务
func (tm *TransactionManager) Commit(trx *Transaction) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// 检查事务状态
	if trx.State != TRX_STATE_ACTIVE {
		return ErrInvalidTrxState
	}

	// 写入Redo日志
	for _, redoLog := range trx.RedoLogs {
		if _, err := tm.redoManager.Append(&redoLog); err != nil {
			return err
		}
	}

	// 确保Redo日志持久化
	if err := tm.redoManager.Flush(0); err != nil {
		return err
	}

	// 更新事务状态
	trx.State = TRX_STATE_COMMITTED
	trx.LastActiveTime = time.Now()

	// 提交无需重放 undo，直接释放其在 undo request manager 中的槽位
	if trx.UndoReq != nil {
		tm.urmMgr.Unregister(trx.UndoReq)
	}

	// 清理Undo日志
	tm.undoManager.Cleanup(trx.ID)

	// 移除活跃事务记录
	delete(tm.activeTransactions, trx.ID)

	return nil
}

// Rollback 回滚事务
func (tm *TransactionManager) Rollback(trx *Transaction) error {
	tm.mu.Lock()

	// 检查事务状态
	if trx.State != TRX_STATE_ACTIVE {
		tm.mu.Unlock()
		return ErrInvalidTrxState
	}

	// 更新事务状态
	trx.State = TRX_STATE_ROLLED_BACK
	trx.LastActiveTime = time.Now()
	delete(tm.activeTransactions, trx.ID)

	tm.mu.Unlock()

	if trx.UndoReq == nil {
		// 没有登记到 undo request manager（arena 已满），直接内联回滚
		return tm.undoManager.Rollback(trx.ID)
	}

	start, end, wroteUndo := tm.undoManager.UndoRange(trx.ID)
	if wroteUndo {
		trx.UndoReq.Finalize(end-start+1, urm.UndoPtr(start), urm.UndoPtr(end), urm.InvalidUndoPtr, urm.InvalidUndoPtr)
	}

	// 若本事务未写入任何 undo 记录，PerformUndoInBackground 会发现两端
	// 的位置都无效，并在内部直接释放该请求；此时无需再回放或 Unregister。
	background := tm.urmMgr.PerformUndoInBackground(trx.UndoReq, false)
	if !wroteUndo {
		return nil
	}
	if background {
		logger.Infof("transaction %d: undo queued for background worker (lsn %d..%d)", trx.ID, start, end)
		go tm.finishUndo(trx)
		return nil
	}
	return tm.finishUndo(trx)
}

// finishUndo replays trx's undo log and releases its urm.Request slot. It is
// called either inline, when PerformUndoInBackground refused background
// admission, or from a goroutine standing in for a background undo worker.
func (tm *TransactionManager) finishUndo(trx *Transaction) error {
	err := tm.undoManager.Rollback(trx.ID)
	if err != nil {
		logger.Errorf("transaction %d: undo replay failed: %v", trx.ID, err)
	}
	tm.urmMgr.Unregister(trx.UndoReq)
	return err
}

// createReadView 创建MVCC读视图
func (tm *TransactionManager) createReadView(trxID int64) *mvcc.ReadView {
	// 获取当前活跃事务列表
	activeIDs := make([]int64, 0, len(tm.activeTransactions))
	minTrxID := int64(^uint64(0) >> 1)

	for id, trx := range tm.activeTransactions {
		if trx.State == TRX_STATE_ACTIVE && id != trxID {
			activeIDs = append(activeIDs, id)
			if id < minTrxID {
				minTrxID = id
			}
		}
	}

	return mvcc.NewReadView(activeIDs, minTrxID, tm.nextTrxID+1, trxID)
}

// GetTransaction 获取事务对象
func (tm *TransactionManager) GetTransaction(trxID int64) *Transaction {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.activeTransactions[trxID]
}

// IsVisible 判断数据版本是否对事务可见
func (tm *TransactionManager) IsVisible(trx *Transaction, version int64) bool {
	if trx.IsolationLevel == TRX_ISO_READ_UNCOMMITTED {
		return true
	}

	if trx.ReadView == nil {
		return true
	}

	return trx.ReadView.IsVisible(version)
}

// Cleanup 清理超时事务
func (tm *TransactionManager) Cleanup() {
	timeout := tm.defaultTimeout
	now := time.Now()

	tm.mu.RLock()
	expired := make([]*Transaction, 0)
	for _, trx := range tm.activeTransactions {
		if now.Sub(trx.LastActiveTime) > timeout {
			expired = append(expired, trx)
		}
	}
	tm.mu.RUnlock()

	// Rollback takes tm.mu itself, so it must not be called while holding it.
	for _, trx := range expired {
		tm.Rollback(trx)
	}
}

// Close 关闭事务管理器
func (tm *TransactionManager) Close() error {
	tm.mu.RLock()
	active := make([]*Transaction, 0, len(tm.activeTransactions))
	for _, trx := range tm.activeTransactions {
		if trx.State == TRX_STATE_ACTIVE {
			active = append(active, trx)
		}
	}
	tm.mu.RUnlock()

	for _, trx := range active {
		tm.Rollback(trx)
	}

	tm.urmMgr.LogReport()

	// 关闭日志管理器
	if err := tm.redoManager.Close(); err != nil {
		return err
	}
	if err := tm.undoManager.Close(); err != nil {
		return err
	}

	return nil
}
