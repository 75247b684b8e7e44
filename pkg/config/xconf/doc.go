// Package xconf 加载 xqueue 运行配置，基于 koanf 实现。
//
// # 加载
//
//   - New(path)：按扩展名识别 YAML（.yaml/.yml）或 JSON（.json）
//   - NewFromBytes(data, format)：从字节加载，如 K8s ConfigMap 挂载内容
//   - Config.Client() 暴露底层 koanf 实例，Unmarshal 反序列化到结构体（标签 koanf）
//   - Config.Reload() 重新读取文件，解析失败时保留旧配置
//
// # Settings
//
// LoadSettings 读取并校验运行配置：日志、执行器、Redis 连接、周期参数和队列列表。
// 校验规则见 Settings.Validate，缺省值在校验前填充。
//
//	queues:
//	  - name: orders
//	    backend: memory
//	    source: /data/orders.txt
//	    schedule: "@every 5m"
//
// # 监视
//
// Watch 监视配置文件所在目录（兼容编辑器的 rename 原子写入），
// 防抖后调用 Reload 并回调通知。Close 返回后不再有回调执行。
package xconf
