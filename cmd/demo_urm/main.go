package main

import (
	"fmt"
	"path/filepath"

	"github.com/zhukovaskychina/xmysql-server/server/innodb/manager"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/urm"
)

func main() {
	demoTransactionManager()
	demoStandaloneManager()
}

// demoTransactionManager drives undo request scheduling the way it actually
// happens in this repository: through TransactionManager.Begin/Commit/
// Rollback, not by poking at an urm.Manager directly.
func demoTransactionManager() {
	fmt.Println("=== 事务管理器驱动的 undo 调度演示 ===")

	tmpDir := filepath.Join(".", "urm_demo_txn")
	tm, err := manager.NewTransactionManager(tmpDir, tmpDir)
	if err != nil {
		fmt.Printf("创建事务管理器失败: %v\n", err)
		return
	}
	defer tm.Close()

	fmt.Println("1. 开启一笔将要提交的事务...")
	committing, _ := tm.Begin(false, manager.TRX_ISO_REPEATABLE_READ)
	fmt.Printf("   trx_id=%d 已登记到 undo request manager\n", committing.ID)
	tm.Commit(committing)
	fmt.Println("   ✓ 已提交，undo 槽位随之释放")

	fmt.Println("2. 开启一笔未写入任何变更就中止的事务...")
	aborting, _ := tm.Begin(false, manager.TRX_ISO_REPEATABLE_READ)
	if err := tm.Rollback(aborting); err != nil {
		fmt.Printf("   回滚失败: %v\n", err)
	} else {
		fmt.Println("   ✓ 未记录任何 undo 位置，调度器立即释放了该槽位")
	}

	fmt.Println()
}

// demoStandaloneManager walks through the urm.Manager API directly, for the
// pieces TransactionManager doesn't surface on its own: checkpointing and
// crash recovery of the arena itself.
func demoStandaloneManager() {
	fmt.Println("=== undo request manager 演示 ===")

	fmt.Println("1. 创建 Manager...")
	m := urm.NewManager(64, 48)
	footprint := urm.EstimateSize(64)
	fmt.Printf("   预估内存占用: header=%dB request_arena=%dB index_node_arena=%dB total=%dB\n",
		footprint.HeaderBytes, footprint.RequestArenaBytes, footprint.IndexNodeArenaBytes, footprint.TotalBytes)

	fmt.Println("2. 注册一笔将要回滚的事务...")
	req := m.Register(1001, 7)
	if req == nil {
		fmt.Println("   注册失败：arena 已满")
		return
	}
	fmt.Printf("   已注册 fxid=%d dbid=%d，当前使用率=%d\n", req.FXID(), req.DBID(), m.Utilization())

	fmt.Println("3. 事务中止，记录 undo 范围...")
	req.Finalize(4096, 0x10, 0x2010, urm.InvalidUndoPtr, urm.InvalidUndoPtr)

	fmt.Println("4. 请求后台执行 undo...")
	if m.PerformUndoInBackground(req, false) {
		fmt.Println("   ✓ 已转入后台队列 (LISTED-a)")
	} else {
		fmt.Println("   soft_size_limit 已触及，调用方需自行前台执行")
	}

	fmt.Println("5. worker 取出最高优先级的请求...")
	next, ok := m.GetNextUndoRequest(urm.InvalidDBID, true)
	if !ok {
		fmt.Println("   队列为空")
		return
	}
	fmt.Printf("   取出 fxid=%d dbid=%d start_logged=%#x end_logged=%#x\n",
		next.FXID, next.DBID, next.StartLogged, next.EndLogged)

	fmt.Println("6. 模拟 checkpoint 落盘...")
	checkpointPath := filepath.Join(".", "urm_demo.checkpoint")
	second := m.Register(1002, 7)
	second.Finalize(128, 0x30, 0x40, urm.InvalidUndoPtr, urm.InvalidUndoPtr)
	m.PerformUndoInBackground(second, true)

	if err := urm.WriteCheckpoint(checkpointPath, m); err != nil {
		fmt.Printf("   写入 checkpoint 失败: %v\n", err)
		return
	}
	fmt.Printf("   ✓ checkpoint 已写入 %s\n", checkpointPath)

	fmt.Println("7. 模拟重启后恢复...")
	blob, err := urm.ReadCheckpoint(checkpointPath)
	if err != nil {
		fmt.Printf("   读取 checkpoint 失败: %v\n", err)
		return
	}
	recovered := urm.NewManager(64, 48)
	if err := recovered.Restore(blob); err != nil {
		fmt.Printf("   恢复失败: %v\n", err)
		return
	}
	recovered.LogReport()

	fmt.Println("\n=== 演示完成 ===")
}
